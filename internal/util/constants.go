package util

const (
	DateFormat  = "2006-01-02"
	TimeFormat  = "2006-01-02 15:04:05"
	MonthFormat = "2006-01"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	MailProviderSendGrid = "sendgrid"
	MailProviderLog      = "log"
)

const (
	DefaultWindowDays = 30
	MaxWindowDays     = 365
)
