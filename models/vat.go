package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// VAT is a closed set of tax tags. Percentage tags carry their rate;
// AAM (personal tax exemption), TAM (tax-exempt activity) and FAD
// (reverse charge) carry rate zero. The engine stores the tag and checks
// price consistency; it computes no tax beyond that.
type VAT string

const (
	VatZero VAT = "0%"
	Vat5    VAT = "5%"
	Vat18   VAT = "18%"
	Vat27   VAT = "27%"
	VatAAM  VAT = "AAM"
	VatTAM  VAT = "TAM"
	VatFAD  VAT = "FAD"
)

// priceTolerance absorbs rounding between net*vat and the supplied gross.
var priceTolerance = decimal.NewFromFloat(0.01)

func ParseVAT(s string) (VAT, error) {
	switch VAT(strings.ToUpper(strings.TrimSpace(s))) {
	case VatZero:
		return VatZero, nil
	case Vat5:
		return Vat5, nil
	case Vat18:
		return Vat18, nil
	case Vat27:
		return Vat27, nil
	case VatAAM:
		return VatAAM, nil
	case VatTAM:
		return VatTAM, nil
	case VatFAD:
		return VatFAD, nil
	}
	return "", fmt.Errorf("unknown vat %q", s)
}

// Multiplier returns the gross/net factor for the tag.
func (v VAT) Multiplier() decimal.Decimal {
	switch v {
	case Vat5:
		return decimal.NewFromFloat(1.05)
	case Vat18:
		return decimal.NewFromFloat(1.18)
	case Vat27:
		return decimal.NewFromFloat(1.27)
	default:
		// 0%, AAM, TAM, FAD
		return decimal.NewFromInt(1)
	}
}

// CheckGross verifies gross == net * multiplier within tolerance.
func (v VAT) CheckGross(net decimal.Decimal, gross decimal.Decimal) bool {
	expected := net.Mul(v.Multiplier())
	return expected.Sub(gross).Abs().LessThanOrEqual(priceTolerance)
}
