package constants

import "github.com/go-playground/validator/v10"

// Validate is the shared validator instance used for DTO and params struct
// validation.
var Validate = validator.New()

type ContextKey string

const (
	PoolKey    ContextKey = "pool"
	TxKey      ContextKey = "tx"
	UserKey    ContextKey = "user"
	SessionKey ContextKey = "session"
	ParamsKey  ContextKey = "params"
	LoggerKey  ContextKey = "logger"
)
