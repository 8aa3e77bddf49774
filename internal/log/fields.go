package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldBytes       = "bytes"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldGroupID     = "group_id"
	FieldMemberID    = "member_id"
	FieldExpenseID   = "expense_id"
	FieldCurrency    = "currency"
	FieldAmountCents = "amount_cents"
	FieldSplitMethod = "split_method"
	FieldSplitCount  = "split_count"
	FieldDebtCount   = "debt_count"
	FieldSum         = "sum"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpDelete   = "delete"
	OpSettle   = "settle"
	OpSummary  = "summary"
	OpAudit    = "audit"
	OpExport   = "export"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithGroup(groupID string) LogFields {
	f[FieldGroupID] = groupID
	return f
}

// WithExpense adds the fields identifying a ledger write
func (f LogFields) WithExpense(expenseID, currency, method string, amountCents int64, splits int) LogFields {
	f[FieldExpenseID] = expenseID
	f[FieldCurrency] = currency
	f[FieldSplitMethod] = method
	f[FieldAmountCents] = amountCents
	f[FieldSplitCount] = splits
	return f
}

func (f LogFields) WithHTTPRequest(method, path string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, bytes int) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldBytes] = bytes
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
