package server

import (
	"net"
	"net/url"
	"strconv"
)

// Connection is either a full connection string or its discrete parts.
// Unset parts default to a local postgres superuser connection.
type Connection struct {
	ConnStr  string `json:"conn_str,omitempty"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	DBName   string `json:"dbname,omitempty"`
}

func (c Connection) String() string {
	if c.ConnStr != "" {
		return c.ConnStr
	}

	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	user := c.User
	if user == "" {
		user = "postgres"
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + c.database(),
	}
	if c.Password != "" {
		u.User = url.UserPassword(user, c.Password)
	} else {
		u.User = url.User(user)
	}
	return u.String()
}

func (c Connection) database() string {
	if c.DBName == "" {
		return "postgres"
	}
	return c.DBName
}

// dbname is the database named by the connection, or "" when only a
// connection string is known.
func (c Connection) dbname() string {
	if c.ConnStr != "" {
		return ""
	}
	return c.database()
}
