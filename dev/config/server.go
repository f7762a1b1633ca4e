package config

// SERVER_YML is the default dev config written on first boot. With no
// privateKeyPem set, the server signs tokens with an ephemeral key.
const SERVER_YML = `
rolodex:
  privateKeyPem:
  cron:
    timeZone: "America/Toronto"
    reminderSchedule: "0 9 * * *"
  listener:
    port: 3000

sqlite:
  passPhrase: passphrase

google:
  storage:
    bucket: "rolodex"
    prefix: "rolodex-dev"
    sqliteBackupSchedule: "*/30 * * * *"
    enableSqliteBackup: false
  applicationCredentials:

twilio:
  accountSid:
  authToken:
  messagingServiceSid:
`
