// internal/license/keygen.go
package license

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"

	"github.com/keygen-sh/keygen-go/v3"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	ErrLicenseExpired  = errors.New("license has expired")
	ErrLicenseNotFound = errors.New("license not found")
)

type Config struct {
	Account   string
	Product   string
	Token     string
	Key       string
	Heartbeat string
}

// Enabled reports whether a license key was configured.
func (c Config) Enabled() bool {
	return c.Key != ""
}

// Validator checks the service license with keygen.sh and keeps it alive with a
// scheduled heartbeat.
type Validator struct {
	cfg    Config
	logger *zap.Logger
	cron   *cron.Cron

	validate    func(ctx context.Context, fingerprint string) (*keygen.License, error)
	activate    func(ctx context.Context, l *keygen.License, fingerprint string) (string, error)
	fingerprint func() (string, error)
}

// NewValidator configures the keygen client. keygen keeps its settings in
// package state, so only one Validator should exist per process.
func NewValidator(cfg Config, logger *zap.Logger) *Validator {
	keygen.Account = cfg.Account
	keygen.Product = cfg.Product
	keygen.Token = cfg.Token
	keygen.LicenseKey = cfg.Key

	return &Validator{
		cfg:    cfg,
		logger: logger.Named("license"),
		validate: func(ctx context.Context, fingerprint string) (*keygen.License, error) {
			return keygen.Validate(ctx, fingerprint)
		},
		activate: func(ctx context.Context, l *keygen.License, fingerprint string) (string, error) {
			machine, err := l.Activate(ctx, fingerprint)
			if err != nil {
				return "", err
			}
			return machine.ID, nil
		},
		fingerprint: machineFingerprint,
	}
}

// Validate checks the license and activates this machine on first use.
func (v *Validator) Validate(ctx context.Context) error {
	v.logger.Info("Validating license", zap.String("key", mask(v.cfg.Key)))

	fingerprint, err := v.fingerprint()
	if err != nil {
		return fmt.Errorf("failed to generate machine fingerprint: %w", err)
	}

	license, err := v.validate(ctx, fingerprint)
	switch {
	case errors.Is(err, keygen.ErrLicenseNotActivated):
		v.logger.Info("License not activated, attempting activation")
		if license == nil {
			return ErrLicenseNotFound
		}
		machineID, err := v.activate(ctx, license, fingerprint)
		if err != nil {
			return fmt.Errorf("failed to activate license: %w", err)
		}
		v.logger.Info("License activated", zap.String("machine_id", machineID))
	case errors.Is(err, keygen.ErrLicenseExpired):
		return ErrLicenseExpired
	case err != nil:
		return fmt.Errorf("license validation failed: %w", err)
	}

	if license == nil {
		return ErrLicenseNotFound
	}
	v.logger.Info("License valid", zap.String("license_id", license.ID))
	return nil
}

// Heartbeat revalidates once.
func (v *Validator) Heartbeat(ctx context.Context) error {
	fingerprint, err := v.fingerprint()
	if err != nil {
		return fmt.Errorf("failed to generate machine fingerprint: %w", err)
	}
	if _, err := v.validate(ctx, fingerprint); err != nil {
		return fmt.Errorf("heartbeat failed: %w", err)
	}
	v.logger.Debug("License heartbeat sent")
	return nil
}

// StartHeartbeat runs Heartbeat on the configured schedule until Stop.
func (v *Validator) StartHeartbeat(ctx context.Context) error {
	v.cron = cron.New()
	if _, err := v.cron.AddFunc(v.cfg.Heartbeat, func() {
		if err := v.Heartbeat(ctx); err != nil {
			v.logger.Warn("License heartbeat failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule heartbeat: %w", err)
	}
	v.cron.Start()
	return nil
}

func (v *Validator) Stop() {
	if v.cron != nil {
		<-v.cron.Stop().Done()
	}
}

// machineFingerprint hashes the hostname, first active MAC address and OS.
func machineFingerprint() (string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	var mac string
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagLoopback == 0 && len(iface.HardwareAddr) > 0 {
			mac = iface.HardwareAddr.String()
			break
		}
	}
	if mac == "" {
		return "", errors.New("no network interfaces found")
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%s", hostname, mac, runtime.GOOS)))
	return fmt.Sprintf("%x", sum), nil
}

func mask(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:8] + "..."
}
