package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/shelter-adoption-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "shelter", Password: "secret", Name: "adoption", SSLMode: "require"})
	assert.Equal(t, "host=db port=5433 user=shelter password=secret dbname=adoption sslmode=require application_name=shelter-adoption-api connect_timeout=5", dsn)
}
