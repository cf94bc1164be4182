package config

import (
	"github.com/xiagw/mysql-export/pkg/database"
)

const (
	defaultHost = "localhost"
	defaultPort = 3306
	defaultUser = "root"
)

// Profile is the resolved set of connection and selection settings for one run.
// Treat it as a value: Merge and Resolve always return fresh copies.
type Profile struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Prefixes []string
}

// Defaults returns the built-in lowest precedence layer.
func Defaults() Profile {
	return Profile{
		Host: defaultHost,
		Port: defaultPort,
		User: defaultUser,
	}
}

// Merge applies the layers in order of increasing precedence. A non-zero field
// in a later layer replaces the value collected so far; zero fields leave it
// untouched.
func Merge(layers ...Profile) Profile {
	var p Profile
	for _, l := range layers {
		if l.Host != "" {
			p.Host = l.Host
		}
		if l.Port != 0 {
			p.Port = l.Port
		}
		if l.User != "" {
			p.User = l.User
		}
		if l.Password != "" {
			p.Password = l.Password
		}
		if l.Database != "" {
			p.Database = l.Database
		}
		if len(l.Prefixes) > 0 {
			p.Prefixes = append([]string(nil), l.Prefixes...)
		}
	}
	return p
}

// Connection converts the profile into connection parameters.
func (p Profile) Connection() database.Connection {
	return database.Connection{
		Host:     p.Host,
		Port:     p.Port,
		User:     p.User,
		Pass:     p.Password,
		Database: p.Database,
	}
}
