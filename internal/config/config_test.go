package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Database: DatabaseConfig{
			Driver: "mysql",
			Host:   "localhost",
			User:   "test",
			DBName: "test",
		},
		Mail: MailConfig{PollInterval: time.Minute},
		CSV:  CSVConfig{MaxFileSize: 1024, MaxRows: 10},
	}
}

func TestConfigValidation(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	invalid := validConfig()
	invalid.Server.Port = ""
	assert.Error(t, invalid.Validate())

	badDriver := validConfig()
	badDriver.Database.Driver = "oracle"
	assert.Error(t, badDriver.Validate())

	sqlite := validConfig()
	sqlite.Database = DatabaseConfig{Driver: "sqlite", Path: "/tmp/leads.db"}
	assert.NoError(t, sqlite.Validate())

	noPoll := validConfig()
	noPoll.Mail.PollInterval = 0
	assert.Error(t, noPoll.Validate())

	memory := validConfig()
	memory.Memory.Enabled = true
	assert.Error(t, memory.Validate())
}

func TestValidateDoesNotRequireMailCredentials(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.Mail.HasCredentials())
	assert.NoError(t, cfg.Validate())
}

func TestMailCredentials(t *testing.T) {
	m := MailConfig{Host: "imap.example.com", User: "leads@example.com"}
	assert.False(t, m.HasCredentials())

	m.Password = "secret"
	assert.True(t, m.HasCredentials())

	m.Password = ""
	m.OAuth = OAuthConfig{ClientID: "id", ClientSecret: "secret", RefreshToken: "token"}
	assert.True(t, m.UsesOAuth())
	assert.True(t, m.HasCredentials())
}

func TestDatabaseDSN(t *testing.T) {
	mysql := DatabaseConfig{
		Driver:   "mysql",
		Host:     "localhost",
		Port:     3306,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
	}
	assert.Equal(t, "testuser:testpass@tcp(localhost:3306)/testdb?charset=utf8mb4&parseTime=True&loc=Local", mysql.GetDSN())

	pg := DatabaseConfig{
		Driver:   "postgres",
		Host:     "db",
		Port:     5432,
		User:     "u",
		Password: "p",
		DBName:   "leads",
		SSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=leads sslmode=disable", pg.GetDSN())

	sqlite := DatabaseConfig{Driver: "sqlite", Path: "leads.db"}
	assert.Equal(t, "leads.db", sqlite.GetDSN())
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("IMAP_HOST", "imap.example.com")
	t.Setenv("CAMPAIGN_DOMAIN", "mail.example-campaigns.com")

	cfg, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "INBOX", cfg.Mail.Folder)
	assert.Equal(t, 60*time.Second, cfg.Mail.PollInterval)
	assert.True(t, cfg.Mail.IdleEnabled)
	assert.Equal(t, "imap.example.com", cfg.Mail.Host)
	assert.Equal(t, "mail.example-campaigns.com", cfg.Lane.CampaignDomain)
	assert.Equal(t, int64(10*1024*1024), cfg.CSV.MaxFileSize)
	assert.Equal(t, 10000, cfg.CSV.MaxRows)
}
