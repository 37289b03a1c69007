package authsvc

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/avishek-m/pricecompare/internal/content"
	apperrors "github.com/avishek-m/pricecompare/pkg/errors"
)

// otpTable, otpLength, and otpTTL bound the login-verification code: 6
// digits, valid for 5 minutes, issued/verified through the same Content
// CRUD interface as every other table (spec §4.8). The original Flask app
// left send_otp/confirm_otp as unimplemented stubs; this fills in the
// minimal real mechanics an SMS gateway hand-off would need.
const (
	otpTable  = "otp_codes"
	otpLength = 6
	otpTTL    = 5 * time.Minute
)

// OTPSender dispatches a one-time code to a mobile number through
// whatever SMS gateway the deployment configures. This package only owns
// generation, storage, and verification.
type OTPSender interface {
	Send(ctx context.Context, mobile, code string) error
}

// WithOTP attaches an OTPSender to a Service. Calling this is optional —
// SendOTP returns a clear error if it was never configured; ConfirmOTP
// does not use the sender and works either way.
func (s *Service) WithOTP(sender OTPSender) *Service {
	s.otpSender = sender
	return s
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpLength, n.Int64()), nil
}

// SendOTP generates a fresh code, upserts it into otp_codes keyed by
// mobile with a 5 minute expiry, and dispatches it through the configured
// OTPSender.
func (s *Service) SendOTP(ctx context.Context, mobile string) error {
	if mobile == "" {
		return apperrors.InvalidInput("mobile is required")
	}
	if s.otpSender == nil {
		return apperrors.Internal(fmt.Errorf("otp delivery is not configured"))
	}

	code, err := generateOTP()
	if err != nil {
		return apperrors.Internal(fmt.Errorf("generate otp: %w", err))
	}

	existing, err := s.store.Select(ctx, otpTable, content.Row{"mobile": mobile})
	if err != nil {
		return err
	}
	expiresAt := time.Now().UTC().Add(otpTTL)
	if len(existing) > 0 {
		if _, err := s.store.Update(ctx, otpTable, content.Row{"mobile": mobile}, content.Row{
			"code":       code,
			"expires_at": expiresAt,
		}); err != nil {
			return err
		}
	} else {
		if _, err := s.store.Insert(ctx, otpTable, content.Row{
			"mobile":     mobile,
			"code":       code,
			"expires_at": expiresAt,
		}); err != nil {
			return err
		}
	}

	if err := s.otpSender.Send(ctx, mobile, code); err != nil {
		return apperrors.Internal(fmt.Errorf("send otp: %w", err))
	}
	return nil
}

// ConfirmOTP checks code against the most recently issued OTP for mobile,
// rejecting it once it has expired, and removes it on success so it
// cannot be replayed.
func (s *Service) ConfirmOTP(ctx context.Context, mobile, code string) error {
	if mobile == "" || code == "" {
		return apperrors.InvalidInput("mobile and code are required")
	}

	rows, err := s.store.Select(ctx, otpTable, content.Row{"mobile": mobile})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return apperrors.Unauthorized("otp expired or not found")
	}

	row := rows[0]
	storedCode, _ := row["code"].(string)
	expiresAt, ok := row["expires_at"].(time.Time)
	if ok && time.Now().UTC().After(expiresAt) {
		_, _ = s.store.Delete(ctx, otpTable, content.Row{"mobile": mobile})
		return apperrors.Unauthorized("otp expired or not found")
	}
	if storedCode != code {
		return apperrors.Unauthorized("incorrect otp")
	}

	_, _ = s.store.Delete(ctx, otpTable, content.Row{"mobile": mobile})
	return nil
}
