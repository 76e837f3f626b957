package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/eln")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ELN_DEV_USERS", "alice:secret")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.ListenAddr())
	assert.Equal(t, "eln-backend", cfg.JWTIssuer)
	assert.Equal(t, 480, cfg.JWTExpiryMinutes)
	assert.Equal(t, "uid", cfg.LDAPUserAttr)
	assert.Equal(t, "fs", cfg.BlobDriver)
	assert.Equal(t, "./uploads", cfg.UploadPath)
}

func TestLoadRequiredVariables(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ELN_DEV_USERS", "alice:secret")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/eln")
	t.Setenv("JWT_SECRET", "")
	_, err = Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadRequiresSomeAuthBackend(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/eln")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ELN_DEV_USERS", "")
	t.Setenv("LDAP_URL", "")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("LDAP_URL", "ldaps://ldap.example.org")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ldaps://ldap.example.org", cfg.LDAPURL)
}

func TestLoadPort(t *testing.T) {
	setBaseEnv(t)

	t.Setenv("PORT", "9000")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)

	t.Setenv("PORT", "not-a-port")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadS3RequiresBucket(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("BLOB_DRIVER", "s3")

	_, err := Load()
	assert.ErrorContains(t, err, "ELN_S3_BUCKET")

	t.Setenv("ELN_S3_BUCKET", "eln-images")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "eln-images", cfg.S3Bucket)
}

func TestLoadRejectsUnknownBlobDriver(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("BLOB_DRIVER", "tape")

	_, err := Load()
	assert.ErrorContains(t, err, "BLOB_DRIVER")
}

func TestStaffUsers(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ELN_STAFF_USERS", "prof, assistant")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsStaffUser("prof"))
	assert.True(t, cfg.IsStaffUser("PROF"))
	assert.True(t, cfg.IsStaffUser("assistant"))
	assert.False(t, cfg.IsStaffUser("student"))
}

func TestParseUserList(t *testing.T) {
	users := parseUserList("alice:secret, bob:hunter2,:nopass,broken")
	assert.Equal(t, map[string]string{"alice": "secret", "bob": "hunter2"}, users)
	assert.Empty(t, parseUserList(""))
}

func TestShareBaseURLTrimsSlash(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SHARE_BASE_URL", "https://eln.example.org/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://eln.example.org", cfg.ShareBaseURL)
}
