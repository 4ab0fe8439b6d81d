package email

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSender_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name: "enabled without smtp host",
			config: Config{
				Enabled:     true,
				FromAddress: "test@example.com",
			},
			wantErr: "SMTP host is required",
		},
		{
			name: "enabled without from address",
			config: Config{
				Enabled:  true,
				SMTPHost: "smtp.example.com",
			},
			wantErr: "from address is required",
		},
		{
			name: "disabled - no validation",
			config: Config{
				Enabled: false,
			},
			wantErr: "",
		},
		{
			name: "valid config",
			config: Config{
				Enabled:     true,
				SMTPHost:    "smtp.example.com",
				FromAddress: "test@example.com",
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := NewSender(tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, sender)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, sender)
			}
		})
	}
}

func TestNewSender_Defaults(t *testing.T) {
	sender, err := NewSender(Config{
		Enabled:     true,
		SMTPHost:    "smtp.example.com",
		FromAddress: "noreply@example.com",
		FromName:    "account service",
	})
	require.NoError(t, err)

	assert.Equal(t, 587, sender.config.SMTPPort)
	assert.Equal(t, 30, sender.config.RatePerMin)
	assert.Equal(t, "Account Service", sender.config.FromName)
}

func TestBuildMessage(t *testing.T) {
	sender, err := NewSender(Config{
		Enabled:     true,
		SMTPHost:    "smtp.example.com",
		FromAddress: "noreply@example.com",
		FromName:    "account service",
	})
	require.NoError(t, err)

	msg := string(sender.buildMessage("Verify your account", "code 123456", "user@example.com"))

	assert.Contains(t, msg, "From: Account Service <noreply@example.com>\r\n")
	assert.Contains(t, msg, "To: user@example.com\r\n")
	assert.Contains(t, msg, "Subject: Verify your account\r\n")
	assert.True(t, strings.HasSuffix(msg, "code 123456"))
}

func TestSendActivationCode_Disabled(t *testing.T) {
	sender, err := NewSender(Config{Enabled: false})
	require.NoError(t, err)

	// No SMTP configured; a disabled sender must not attempt delivery.
	assert.NoError(t, sender.SendActivationCode(t.Context(), "user@example.com", 123456))
}

func TestExtractEmail(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
	}{
		{name: "bare address", address: "user@example.com", want: "user@example.com"},
		{name: "with display name", address: "Service <noreply@example.com>", want: "noreply@example.com"},
		{name: "unclosed bracket", address: "Service <noreply@example.com", want: "Service <noreply@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractEmail(tt.address))
		})
	}
}
