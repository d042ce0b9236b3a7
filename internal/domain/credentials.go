package domain

import "strings"

// DriverMySQL is the canonical driver name; "mysqli" is accepted as an alias.
const DriverMySQL = "mysql"

// DatabaseCredentials identifies the database of a site. It is built once by the
// settings reader or the URL parser and only read afterwards.
type DatabaseCredentials struct {
	Driver   string
	Username string
	Password string
	Host     string
	Port     string
	Database string
}

func NormalizeDriver(driver string) string {
	d := strings.ToLower(strings.TrimSpace(driver))
	if d == "mysqli" {
		return DriverMySQL
	}
	return d
}

// MissingFields lists the required fields that are empty, in a stable order.
func (c DatabaseCredentials) MissingFields() []string {
	var missing []string
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if c.Host == "" {
		missing = append(missing, "host")
	}
	if c.Database == "" {
		missing = append(missing, "database")
	}
	return missing
}

func (c DatabaseCredentials) Validate() error {
	if missing := c.MissingFields(); len(missing) > 0 {
		return &MissingCredentialFieldError{Fields: missing}
	}
	return nil
}
