package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldUserID      = "user_id"
	FieldEmail       = "email"
	FieldRecordID    = "record_id"
	FieldRecordKind  = "record_kind"
	FieldAmountCents = "amount_cents"
	FieldCategory    = "category"
	FieldPeriod      = "period"
	FieldCurrency    = "currency"
	FieldBaseCode    = "base_code"
	FieldListeners   = "listeners"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentGateway  = "gateway"
	ComponentStore    = "store"
	ComponentRegistry = "registry"
	ComponentRates    = "rates"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentArchive  = "archive"
	ComponentAuth     = "auth"
	ComponentCache    = "cache"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpRead      = "read"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpFetch     = "fetch"
	OpNotify    = "notify"
	OpWatch     = "watch"
	OpSignIn    = "sign_in"
	OpSignUp    = "sign_up"
	OpConvert   = "convert"
	OpArchiveOp = "archive"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)
