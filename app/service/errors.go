package service

import "errors"

var (
	ErrInvalidRequest           = errors.New("invalid request")
	ErrTransactionNotFound      = errors.New("transaction not found")
	ErrTransactionAlreadyExists = errors.New("transaction already exists")
	ErrInvalidStatus            = errors.New("invalid status")
	ErrInvalidAmount            = errors.New("invalid amount")
)
