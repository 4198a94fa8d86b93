package service

import (
	"errors"
	"testing"
	"time"

	"github.com/hubflow-next/internal/config"
	"github.com/hubflow-next/internal/constants"
	"github.com/hubflow-next/internal/models"
	"github.com/hubflow-next/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

func setupOtpServiceTest(t *testing.T, cfg config.OTPConfig) (*OtpService, *repository.GormHubOtpRepository) {
	t.Helper()
	db := openServiceTestDB(t, "otp_service_test")
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.MinCost
	}
	repo := repository.NewHubOtpRepository(db)
	return NewOtpService(repo, cfg), repo
}

func TestOtpIssueStoresHashOnly(t *testing.T) {
	svc, repo := setupOtpServiceTest(t, config.OTPConfig{})
	code, expiresAt, err := svc.Issue(10, constants.OtpPurposePickup)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("unexpected code length: %q", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("code must be numeric: %q", code)
		}
	}
	if d := time.Until(expiresAt); d < 29*time.Minute || d > 31*time.Minute {
		t.Fatalf("unexpected expiry window: %v", d)
	}
	record, err := repo.GetActive(10, constants.OtpPurposePickup)
	if err != nil || record == nil {
		t.Fatalf("load active otp failed: %v", err)
	}
	if record.CodeHash == code || bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(code)) != nil {
		t.Fatalf("code must be stored as bcrypt hash")
	}
}

func TestOtpReissueInvalidatesPrevious(t *testing.T) {
	svc, _ := setupOtpServiceTest(t, config.OTPConfig{})
	first, _, err := svc.Issue(11, constants.OtpPurposePickup)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	second, _, err := svc.Issue(11, constants.OtpPurposePickup)
	if err != nil {
		t.Fatalf("reissue failed: %v", err)
	}
	if first != second {
		if err := svc.Verify(11, constants.OtpPurposePickup, first); !errors.Is(err, ErrOtpMismatch) {
			t.Fatalf("old code must be rejected, got %v", err)
		}
	}
	if err := svc.Verify(11, constants.OtpPurposePickup, second); err != nil {
		t.Fatalf("new code rejected: %v", err)
	}
	if err := svc.Verify(11, constants.OtpPurposePickup, second); !errors.Is(err, ErrOtpMismatch) {
		t.Fatalf("consumed code must not verify twice, got %v", err)
	}
}

func TestOtpVerifyWithoutActiveCode(t *testing.T) {
	svc, _ := setupOtpServiceTest(t, config.OTPConfig{})
	if err := svc.Verify(12, constants.OtpPurposePickup, "123456"); !errors.Is(err, ErrOtpMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if err := svc.Verify(12, constants.OtpPurposePickup, ""); !errors.Is(err, ErrOtpMismatch) {
		t.Fatalf("expected mismatch for empty code, got %v", err)
	}
}

func TestOtpLockedCodeKeepsReportingAttemptsExceeded(t *testing.T) {
	svc, repo := setupOtpServiceTest(t, config.OTPConfig{MaxAttempts: 2})
	code, _, err := svc.Issue(15, constants.OtpPurposeDelivery)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if err := svc.Verify(15, constants.OtpPurposeDelivery, wrongCode(code)); !errors.Is(err, ErrOtpMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if err := svc.Verify(15, constants.OtpPurposeDelivery, wrongCode(code)); !errors.Is(err, ErrOtpAttemptsExceeded) {
		t.Fatalf("expected lock on the last attempt, got %v", err)
	}
	active, err := repo.GetActive(15, constants.OtpPurposeDelivery)
	if err != nil || active != nil {
		t.Fatalf("locked code must be invalidated, active=%+v err=%v", active, err)
	}
	if err := svc.Verify(15, constants.OtpPurposeDelivery, code); !errors.Is(err, ErrOtpAttemptsExceeded) {
		t.Fatalf("correct code after lock must report attempts exceeded, got %v", err)
	}
	if err := svc.Verify(15, constants.OtpPurposePickup, code); !errors.Is(err, ErrOtpMismatch) {
		t.Fatalf("other purpose has no code, got %v", err)
	}

	fresh, _, err := svc.Issue(15, constants.OtpPurposeDelivery)
	if err != nil {
		t.Fatalf("reissue failed: %v", err)
	}
	if err := svc.Verify(15, constants.OtpPurposeDelivery, fresh); err != nil {
		t.Fatalf("fresh code rejected: %v", err)
	}
	if err := svc.Verify(15, constants.OtpPurposeDelivery, fresh); !errors.Is(err, ErrOtpMismatch) {
		t.Fatalf("consumed code is not a lock, got %v", err)
	}
}

func TestOtpAllowThrottlesPerOrder(t *testing.T) {
	svc, _ := setupOtpServiceTest(t, config.OTPConfig{VerifyRatePerMinute: 1, VerifyBurst: 2})
	if !svc.Allow(13, constants.OtpPurposePickup) || !svc.Allow(13, constants.OtpPurposePickup) {
		t.Fatalf("burst attempts should be allowed")
	}
	if svc.Allow(13, constants.OtpPurposePickup) {
		t.Fatalf("third attempt should be throttled")
	}
	if !svc.Allow(14, constants.OtpPurposePickup) {
		t.Fatalf("other orders must not share the limiter")
	}
}

func TestOtpPurgeExpired(t *testing.T) {
	svc, repo := setupOtpServiceTest(t, config.OTPConfig{RetentionHours: 1})
	old := time.Now().Add(-3 * time.Hour)
	if err := repo.Create(&models.HubOtp{OrderID: 15, Purpose: constants.OtpPurposePickup, CodeHash: "x", ExpiresAt: old, IssuedAt: old}); err != nil {
		t.Fatalf("create otp failed: %v", err)
	}
	if _, _, err := svc.Issue(16, constants.OtpPurposePickup); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	removed, err := svc.PurgeExpired(t.Context(), time.Now())
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 purged, got %d", removed)
	}
	if record, _ := repo.GetActive(16, constants.OtpPurposePickup); record == nil {
		t.Fatalf("live code must survive purge")
	}
}
