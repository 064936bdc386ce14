package utils

import "context"

// check if id exists, return RecordNotFound error otherwise
func ValidateResourceId[T any](ctx context.Context, id any) error {

	count, err := ResourceCountWhere[T](ctx, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

// check uniqueness of a field value among rows other than id
// (id = 0 / "" for create)
func ValidateUnique[T any](ctx context.Context, fieldName string, value any, id any) error {

	count, err := ResourceCountWhere[T](ctx, fieldName+" = ? AND id != ?", value, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrorAlreadyExists
	}

	return nil
}
