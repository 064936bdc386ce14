package models

import (
	"context"
	"errors"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/mmdatafocus/upl_backend/config"
	"github.com/mmdatafocus/upl_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Upl is the tracked physical inventory unit (a pallet, case or opened
// pack). The row is a projection of the UPL's event ledger: every mutation
// commits the new projection and its event in one transaction, and the
// projection can be rebuilt from events alone (see rebuild.go).
type Upl struct {
	// ID is caller-suppliable: labels are printed before goods arrive.
	// When absent a uuid is generated. Numeric ids are printed label
	// codes and carry a check digit (utils/uplCode.go).
	ID       string          `gorm:"size:36;primary_key" json:"id"`
	Quantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	// Unit of measure, fixed at creation.
	Unit   string    `gorm:"size:20;not null;default:'pcs'" json:"unit"`
	Status UplStatus `gorm:"size:2;not null;default:'A';index" json:"status"`

	// Lineage. Both references are write-once.
	ParentId     *string `gorm:"size:36;index" json:"parent_id,omitempty"`
	MergedIntoId *string `gorm:"size:36;index" json:"merged_into_id,omitempty"`

	LocationId int `gorm:"index;not null" json:"location_id"`

	BestBefore *time.Time `json:"best_before,omitempty"`

	// Culling record: the unit is flagged for clearance, not removed.
	CullingId          *int             `gorm:"index" json:"culling_id,omitempty"`
	CullingDescription *string          `gorm:"type:text" json:"culling_description,omitempty"`
	CulledPrice        *decimal.Decimal `gorm:"type:decimal(20,4)" json:"culled_price,omitempty"`

	// Price record.
	NetRetailPrice   *decimal.Decimal `gorm:"type:decimal(20,4)" json:"net_retail_price,omitempty"`
	Vat              *VAT             `gorm:"size:5" json:"vat,omitempty"`
	GrossRetailPrice *decimal.Decimal `gorm:"type:decimal(20,4)" json:"gross_retail_price,omitempty"`

	// Version guards against writers outside this process (optimistic CAS).
	Version   int       `gorm:"not null;default:0" json:"version"`
	CreatedBy string    `gorm:"size:100" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *Upl) IsActive() bool {
	return u.Status.IsActive()
}

func (u *Upl) CurrentQuantity() decimal.Decimal {
	if !u.IsActive() {
		return decimal.Zero
	}
	return u.Quantity
}

type NewUpl struct {
	UplId      string          `json:"upl_id"`
	Quantity   decimal.Decimal `json:"quantity" binding:"required"`
	Unit       string          `json:"unit"`
	LocationId int             `json:"location_id" binding:"required"`
	BestBefore *time.Time      `json:"best_before"`
}

func (input *NewUpl) validate(ctx context.Context) error {
	if !input.Quantity.IsPositive() {
		return utils.ErrorInvalidQuantity
	}
	if err := utils.ValidateResourceId[Location](ctx, input.LocationId); err != nil {
		return err
	}
	if input.UplId != "" && config.StrictUplCodes() && utils.IsNumericUplCode(input.UplId) {
		if err := utils.ValidateUplCode(input.UplId); err != nil {
			return err
		}
	}
	return nil
}

// CreateUpl registers a new Active UPL at the given location and appends
// its Created event in the same transaction.
func CreateUpl(ctx context.Context, input *NewUpl) (*Upl, error) {

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	createdBy, _ := utils.GetInitiatorIdFromContext(ctx)

	upl := Upl{
		ID:         input.UplId,
		Quantity:   input.Quantity,
		Unit:       input.Unit,
		Status:     UplStatusActive,
		LocationId: input.LocationId,
		BestBefore: input.BestBefore,
		CreatedBy:  createdBy,
	}
	if upl.ID == "" {
		upl.ID = uuid.NewString()
	}
	if upl.Unit == "" {
		upl.Unit = "pcs"
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&upl).Error; err != nil {
			if isDuplicateKeyError(err) {
				return utils.ErrorAlreadyExists
			}
			return err
		}
		_, err := appendUplEvent(tx, upl.ID, UplEventCreated, CreatedPayload{
			Quantity:   upl.Quantity,
			Unit:       upl.Unit,
			LocationId: upl.LocationId,
			BestBefore: upl.BestBefore,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	publishUplEvent(ctx, UplEventCreated, &upl)
	return &upl, nil
}

// CreateUplsBulk creates each input independently (goods receipt scans
// arrive in batches). Failing entries do not roll back the others; the
// caller gets the ids that stuck.
func CreateUplsBulk(ctx context.Context, inputs []*NewUpl) ([]string, error) {
	logger := config.GetLogger()
	ids := make([]string, 0, len(inputs))
	for _, input := range inputs {
		upl, err := CreateUpl(ctx, input)
		if err != nil {
			config.LogError(logger, "upl.go", "CreateUplsBulk", "CreateUpl", input.UplId, err)
			continue
		}
		ids = append(ids, upl.ID)
	}
	return ids, nil
}

func GetUpl(ctx context.Context, id string) (*Upl, error) {
	return utils.FetchSingleModel[Upl](ctx, id)
}

// GetUplLocation returns the UPL's current location id.
func GetUplLocation(ctx context.Context, id string) (int, error) {
	upl, err := GetUpl(ctx, id)
	if err != nil {
		return 0, err
	}
	return upl.LocationId, nil
}

// GetUplsByLocation lists Active UPLs currently sitting at the location.
func GetUplsByLocation(ctx context.Context, locationId int) ([]*Upl, error) {
	db := config.GetDB()
	var results []*Upl
	err := db.WithContext(ctx).
		Where("location_id = ? AND status = ?", locationId, UplStatusActive).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetUplsBulk fetches many UPLs by id; missing ids are skipped.
func GetUplsBulk(ctx context.Context, ids []string) ([]*Upl, error) {
	if len(ids) == 0 {
		return []*Upl{}, nil
	}
	db := config.GetDB()
	var results []*Upl
	err := db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

/* transactional helpers shared by the lifecycle commands */

// fetchUplTx loads a UPL inside a transaction.
func fetchUplTx(tx *gorm.DB, id string) (*Upl, error) {
	var upl Upl
	if err := tx.First(&upl, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &upl, nil
}

// saveUplTx persists the mutated projection with an optimistic version
// check. The in-process keyed lock already serializes mutations; the CAS
// catches writers outside this process.
func saveUplTx(tx *gorm.DB, upl *Upl) error {
	oldVersion := upl.Version
	upl.Version = oldVersion + 1
	res := tx.Model(&Upl{}).
		Where("id = ? AND version = ?", upl.ID, oldVersion).
		Select("*").
		Omit("created_at").
		Updates(upl)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrorVersionConflict
	}
	return nil
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqldrv.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	// sqlite (tests)
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
