package shared

type ServerConfig struct {
	Sqlite  SqliteConfig  `mapstructure:"sqlite" validate:"required"`
	Rolodex RolodexConfig `mapstructure:"rolodex" validate:"required"`
	Twilio  TwilioConfig  `mapstructure:"twilio"`
	Google  GoogleConfig  `mapstructure:"google"`
}

type SqliteConfig struct {
	PassPhrase string `mapstructure:"passPhrase" validate:"required"`
}

type RolodexConfig struct {
	// PEM encoded RSA private key used to sign access/refresh tokens.
	// When empty in dev mode, an ephemeral key is generated on boot.
	PrivateKeyPem string         `mapstructure:"privateKeyPem"`
	Cron          CronConfig     `mapstructure:"cron" validate:"required"`
	Listener      ListenerConfig `mapstructure:"listener" validate:"required"`
}

type CronConfig struct {
	TimeZone string `mapstructure:"timeZone" validate:"required"`

	// Cron expression for the daily birthday reminder job.
	ReminderSchedule string `mapstructure:"reminderSchedule"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required"`
}

type TwilioConfig struct {
	AccountSid          string `mapstructure:"accountSid"`
	AuthToken           string `mapstructure:"authToken"`
	MessagingServiceSid string `mapstructure:"messagingServiceSid"`
}

type GoogleConfig struct {
	ApplicationCredentials string        `mapstructure:"applicationCredentials"`
	Storage                StorageConfig `mapstructure:"storage"`
}

type StorageConfig struct {
	Bucket               string      `mapstructure:"bucket" validate:"required_with=EnableSqliteBackup"`
	Prefix               string      `mapstructure:"prefix"`
	SqliteBackupSchedule string      `mapstructure:"sqliteBackupSchedule" validate:"required_with=EnableSqliteBackup"`
	EnableSqliteBackup   interface{} `mapstructure:"enableSqliteBackup" validate:"omitempty,bool"`
}
