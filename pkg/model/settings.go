package model

import (
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

const DefaultSSHPort = "22"

// ConnectionSettings are the remote server fields entered on the settings panel.
// They are only ever used to fill prompts; nothing connects with them.
type ConnectionSettings struct {
	Host          string `json:"host"`
	Port          string `json:"port"`
	Username      string `json:"username"`
	PasswordOrKey string `json:"passwordOrKey"`
}

// Validate checks the port, the only field with a structural constraint
func (s *ConnectionSettings) Validate() error {
	if s.Port == "" {
		return nil
	}
	port, err := strconv.Atoi(s.Port)
	if err != nil || port < 1 || port > 65535 {
		return goerr.New("invalid port", goerr.V("port", s.Port))
	}
	return nil
}

// Target renders user@host, substituting placeholders for blank fields
func (s *ConnectionSettings) Target() string {
	user := s.Username
	if user == "" {
		user = "root"
	}
	host := s.Host
	if host == "" {
		host = "SERVER_IP"
	}
	return user + "@" + host
}

// Redacted returns a copy safe for display
func (s ConnectionSettings) Redacted() ConnectionSettings {
	if s.PasswordOrKey != "" {
		s.PasswordOrKey = strings.Repeat("*", 8)
	}
	return s
}
