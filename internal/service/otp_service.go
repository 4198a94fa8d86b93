package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hubflow-next/internal/config"
	"github.com/hubflow-next/internal/logger"
	"github.com/hubflow-next/internal/metrics"
	"github.com/hubflow-next/internal/models"
	"github.com/hubflow-next/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	defaultOtpLength      = 6
	defaultOtpMaxAttempts = 5
	defaultOtpRetention   = 72 * time.Hour
	otpLimiterIdleTTL     = 30 * time.Minute
)

// OtpService 枢纽交接码签发与校验
type OtpService struct {
	otpRepo     repository.HubOtpRepository
	length      int
	maxAttempts int
	expire      time.Duration
	hashCost    int
	retention   time.Duration
	verifyRate  rate.Limit
	verifyBurst int

	mu       sync.Mutex
	limiters map[string]*otpLimiter
}

type otpLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// OtpVerifyResult 校验结果，失败时 OtpID 用于事务回滚后登记失败次数
type OtpVerifyResult struct {
	OtpID uint
}

// NewOtpService 创建交接码服务
func NewOtpService(otpRepo repository.HubOtpRepository, cfg config.OTPConfig) *OtpService {
	length := cfg.Length
	if length < 4 || length > 10 {
		length = defaultOtpLength
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultOtpMaxAttempts
	}
	hashCost := cfg.HashCost
	if hashCost < bcrypt.MinCost || hashCost > bcrypt.MaxCost {
		hashCost = bcrypt.DefaultCost
	}
	retention := time.Duration(cfg.RetentionHours) * time.Hour
	if retention <= 0 {
		retention = defaultOtpRetention
	}
	verifyRate := rate.Inf
	if cfg.VerifyRatePerMinute > 0 {
		verifyRate = rate.Limit(cfg.VerifyRatePerMinute / 60)
	}
	burst := cfg.VerifyBurst
	if burst <= 0 {
		burst = maxAttempts
	}
	return &OtpService{
		otpRepo:     otpRepo,
		length:      length,
		maxAttempts: maxAttempts,
		expire:      cfg.ExpireDuration(),
		hashCost:    hashCost,
		retention:   retention,
		verifyRate:  verifyRate,
		verifyBurst: burst,
		limiters:    make(map[string]*otpLimiter),
	}
}

// Length 交接码位数
func (s *OtpService) Length() int {
	return s.length
}

// Issue 独立事务签发交接码
func (s *OtpService) Issue(orderID uint, purpose string) (string, time.Time, error) {
	var code string
	var expiresAt time.Time
	err := s.otpRepo.Transaction(func(tx *gorm.DB) error {
		var err error
		code, expiresAt, err = s.IssueTx(tx, orderID, purpose, time.Now())
		return err
	})
	return code, expiresAt, err
}

// Verify 独立事务校验交接码，失败时登记尝试次数
func (s *OtpService) Verify(orderID uint, purpose, code string) error {
	now := time.Now()
	var result OtpVerifyResult
	err := s.otpRepo.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.VerifyTx(tx, orderID, purpose, code, now)
		return err
	})
	if IsOtpFailure(err) {
		if recordErr := s.RecordFailure(result.OtpID, now); recordErr != nil {
			logger.Warnw("hub_otp_record_failure_failed", "order_id", orderID, "error", recordErr)
		}
		if recordErr := s.lockedAfterFailure(result.OtpID); recordErr != nil {
			return recordErr
		}
	}
	return err
}

// IssueTx 在事务内签发新交接码，旧码作废；返回明文码（仅此一次可见）
func (s *OtpService) IssueTx(tx *gorm.DB, orderID uint, purpose string, now time.Time) (string, time.Time, error) {
	otpRepo := s.otpRepo.WithTx(tx)
	if _, err := otpRepo.InvalidateActive(orderID, purpose, now); err != nil {
		return "", time.Time{}, err
	}
	code, err := generateHandoffCode(s.length)
	if err != nil {
		return "", time.Time{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := now.Add(s.expire)
	record := &models.HubOtp{
		OrderID:   orderID,
		Purpose:   purpose,
		CodeHash:  string(hash),
		ExpiresAt: expiresAt,
		IssuedAt:  now,
	}
	if err := otpRepo.Create(record); err != nil {
		return "", time.Time{}, err
	}
	s.resetLimiter(orderID, purpose)
	return code, expiresAt, nil
}

// InvalidateTx 在事务内作废订单某用途的全部有效码（交付方式切换时使用）
func (s *OtpService) InvalidateTx(tx *gorm.DB, orderID uint, purpose string, now time.Time) error {
	if _, err := s.otpRepo.WithTx(tx).InvalidateActive(orderID, purpose, now); err != nil {
		return err
	}
	s.resetLimiter(orderID, purpose)
	return nil
}

// VerifyTx 在事务内校验并核销交接码，任何失败都不核销
func (s *OtpService) VerifyTx(tx *gorm.DB, orderID uint, purpose, code string, now time.Time) (OtpVerifyResult, error) {
	otpRepo := s.otpRepo.WithTx(tx)
	code = strings.TrimSpace(code)
	if code == "" || len(code) > 16 {
		metrics.OtpVerificationsTotal.WithLabelValues(metrics.ResultMismatch).Inc()
		return OtpVerifyResult{}, ErrOtpMismatch
	}
	record, err := otpRepo.GetActive(orderID, purpose)
	if err != nil {
		return OtpVerifyResult{}, err
	}
	if record == nil {
		return OtpVerifyResult{}, s.noActiveCode(otpRepo, orderID, purpose)
	}
	result := OtpVerifyResult{OtpID: record.ID}
	if !now.Before(record.ExpiresAt) {
		metrics.OtpVerificationsTotal.WithLabelValues(metrics.ResultExpired).Inc()
		return result, ErrOtpExpired
	}
	// 作废写入失败或上限调低时，有效码也可能已达上限
	if record.AttemptCount >= s.maxAttempts {
		metrics.OtpVerificationsTotal.WithLabelValues(metrics.ResultLocked).Inc()
		return result, ErrOtpAttemptsExceeded
	}
	if err := bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(code)); err != nil {
		metrics.OtpVerificationsTotal.WithLabelValues(metrics.ResultMismatch).Inc()
		return result, ErrOtpMismatch
	}
	consumed, err := otpRepo.MarkConsumed(record.ID, now)
	if err != nil {
		return result, err
	}
	if !consumed {
		metrics.OtpVerificationsTotal.WithLabelValues(metrics.ResultMismatch).Inc()
		return result, ErrOtpMismatch
	}
	metrics.OtpVerificationsTotal.WithLabelValues(metrics.ResultOK).Inc()
	return result, nil
}

// noActiveCode 没有有效码时区分：最近一条因失败次数超限被锁定则提示重新申请，否则按不匹配处理
func (s *OtpService) noActiveCode(otpRepo *repository.GormHubOtpRepository, orderID uint, purpose string) error {
	latest, err := otpRepo.GetLatest(orderID, purpose)
	if err != nil {
		return err
	}
	if latest != nil && latest.ConsumedAt == nil && latest.InvalidatedAt != nil && latest.AttemptCount >= s.maxAttempts {
		metrics.OtpVerificationsTotal.WithLabelValues(metrics.ResultLocked).Inc()
		return ErrOtpAttemptsExceeded
	}
	metrics.OtpVerificationsTotal.WithLabelValues(metrics.ResultMismatch).Inc()
	return ErrOtpMismatch
}

// RecordFailure 登记一次失败尝试，达到上限后作废
func (s *OtpService) RecordFailure(otpID uint, now time.Time) error {
	if otpID == 0 {
		return nil
	}
	if err := s.otpRepo.IncrementAttempt(otpID); err != nil {
		return err
	}
	record, err := s.otpRepo.GetByID(otpID)
	if err != nil || record == nil {
		return err
	}
	if record.AttemptCount >= s.maxAttempts && record.IsActive() {
		logger.Warnw("hub_otp_locked", "otp_id", otpID, "order_id", record.OrderID, "attempts", record.AttemptCount)
		return s.otpRepo.Invalidate(otpID, now)
	}
	return nil
}

// lockedAfterFailure 本次失败导致作废时返回尝试次数超限
func (s *OtpService) lockedAfterFailure(otpID uint) error {
	if otpID == 0 {
		return nil
	}
	record, err := s.otpRepo.GetByID(otpID)
	if err != nil || record == nil {
		return nil
	}
	if record.InvalidatedAt != nil && record.AttemptCount >= s.maxAttempts {
		return ErrOtpAttemptsExceeded
	}
	return nil
}

// Allow 判断该订单当前是否允许再次尝试校验
func (s *OtpService) Allow(orderID uint, purpose string) bool {
	if s.verifyRate == rate.Inf {
		return true
	}
	key := otpLimiterKey(orderID, purpose)
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.limiters[key]
	if !ok {
		entry = &otpLimiter{limiter: rate.NewLimiter(s.verifyRate, s.verifyBurst)}
		s.limiters[key] = entry
	}
	entry.lastSeen = now
	s.sweepLocked(now)
	return entry.limiter.AllowN(now, 1)
}

// PurgeExpired 清理保留期之前已过期、核销或作废的交接码
func (s *OtpService) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	removed, err := s.otpRepo.PurgeBefore(now.Add(-s.retention))
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.sweepLocked(now)
	s.mu.Unlock()
	return removed, nil
}

func (s *OtpService) resetLimiter(orderID uint, purpose string) {
	s.mu.Lock()
	delete(s.limiters, otpLimiterKey(orderID, purpose))
	s.mu.Unlock()
}

func (s *OtpService) sweepLocked(now time.Time) {
	for key, entry := range s.limiters {
		if now.Sub(entry.lastSeen) > otpLimiterIdleTTL {
			delete(s.limiters, key)
		}
	}
}

func otpLimiterKey(orderID uint, purpose string) string {
	return purpose + ":" + strconv.FormatUint(uint64(orderID), 10)
}

// IsOtpFailure 判断是否为交接码校验失败（需要登记尝试次数）
func IsOtpFailure(err error) bool {
	return errors.Is(err, ErrOtpMismatch)
}

func generateHandoffCode(length int) (string, error) {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
