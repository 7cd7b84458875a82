package domain

// MailCredentials authenticate the SMTP submission of the weekly mail.
type MailCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Complete reports whether both fields are set.
func (c MailCredentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}
