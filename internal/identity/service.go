package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nikonekti/nikonekti_backend/internal/apperrors"
	"github.com/nikonekti/nikonekti_backend/internal/notification"
	"github.com/nikonekti/nikonekti_backend/internal/validation"
)

const (
	msgInvalidCredentials = "Invalid phone number or password"
	msgAccountDisabled    = "User account is disabled"
	msgPhoneTaken         = "A user with this phone number already exists."
)

// Service manages identity lifecycle.
type Service struct {
	repo      Repository
	notifier  notification.Notifier
	logger    *slog.Logger
	cost      int
	dummyHash []byte
}

// NewService creates a new identity service. cost is the bcrypt work factor.
func NewService(repo Repository, notifier notification.Notifier, logger *slog.Logger, cost int) *Service {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	// compared against when the phone is unknown so both failure paths cost the same
	dummy, _ := bcrypt.GenerateFromPassword([]byte("nikonekti-dummy-password"), cost)
	return &Service{repo: repo, notifier: notifier, logger: logger, cost: cost, dummyHash: dummy}
}

// Register validates the sign-up form and stores a new user with a hashed password.
func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	reg.PhoneNumber = strings.TrimSpace(reg.PhoneNumber)
	reg.FullName = strings.TrimSpace(reg.FullName)
	if reg.Role == "" {
		reg.Role = RoleTenant
	}

	extra := map[string][]string{}
	if reg.Password != "" {
		if problems := validation.Password(reg.Password, reg.PhoneNumber, reg.FullName); len(problems) > 0 {
			extra["password"] = problems
		} else if reg.Password != reg.PasswordConfirm {
			extra["password"] = []string{"Passwords do not match."}
		}
	}
	if validation.PhonePattern.MatchString(reg.PhoneNumber) {
		if _, err := s.repo.FindByPhone(ctx, reg.PhoneNumber); err == nil {
			extra["phone_number"] = []string{msgPhoneTaken}
		} else if !errors.Is(err, ErrUserNotFound) {
			return User{}, apperrors.Internal(err)
		}
	}
	if err := validation.Merge(validation.Struct(reg), extra); err != nil {
		return User{}, err
	}

	user, err := s.create(ctx, User{
		PhoneNumber: reg.PhoneNumber,
		FullName:    reg.FullName,
		Role:        reg.Role,
		KYCStatus:   KYCNotSubmitted,
		IsActive:    true,
	}, reg.Password)
	if err != nil {
		return User{}, err
	}

	s.notify(ctx, notification.Message{
		Kind:        notification.KindWelcome,
		Destination: user.PhoneNumber,
		Body:        fmt.Sprintf("Karibu %s! Your %s account is ready.", user.ShortName(), strings.ToLower(string(user.Role))),
	})
	return user, nil
}

// CreateAdmin provisions a staff account that is verified and KYC approved.
func (s *Service) CreateAdmin(ctx context.Context, phone, fullName, password string) (User, error) {
	phone = strings.TrimSpace(phone)
	fullName = strings.TrimSpace(fullName)
	fields := map[string][]string{}
	if !validation.PhonePattern.MatchString(phone) {
		fields["phone_number"] = []string{"Phone number must be in the format: '+255XXXXXXXXX'. Tanzania format required."}
	}
	if fullName == "" {
		fields["full_name"] = []string{"This field may not be blank."}
	}
	if problems := validation.Password(password, phone, fullName); len(problems) > 0 {
		fields["password"] = problems
	}
	if len(fields) > 0 {
		return User{}, apperrors.Validation(fields)
	}
	return s.create(ctx, User{
		PhoneNumber: phone,
		FullName:    fullName,
		Role:        RoleTenant,
		IsVerified:  true,
		KYCStatus:   KYCApproved,
		IsStaff:     true,
		IsActive:    true,
	}, password)
}

func (s *Service) create(ctx context.Context, user User, password string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, apperrors.Internal(err)
	}
	user.PasswordHash = hash
	user.DateJoined = time.Now().UTC()

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, ErrPhoneTaken) {
			return User{}, apperrors.FieldError("phone_number", msgPhoneTaken)
		}
		return User{}, apperrors.Internal(err)
	}
	return created, nil
}

// Authenticate verifies credentials. Unknown phones and wrong passwords fail identically.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	fields := map[string][]string{}
	if strings.TrimSpace(creds.PhoneNumber) == "" {
		fields["phone_number"] = []string{"This field may not be blank."}
	}
	if creds.Password == "" {
		fields["password"] = []string{"This field may not be blank."}
	}
	if len(fields) > 0 {
		return User{}, apperrors.Validation(fields)
	}

	user, err := s.repo.FindByPhone(ctx, strings.TrimSpace(creds.PhoneNumber))
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return User{}, apperrors.Internal(err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(creds.Password))
		return User{}, apperrors.InvalidCredentials(msgInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, apperrors.InvalidCredentials(msgInvalidCredentials)
	}

	if !user.IsActive {
		return User{}, apperrors.InvalidCredentials(msgAccountDisabled)
	}

	now := time.Now().UTC()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return User{}, apperrors.Internal(err)
	}
	user.LastLogin = &now
	return user, nil
}

// Get fetches a user by id, mapping a miss to a generic not found error.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, apperrors.NotFound()
		}
		return User{}, apperrors.Internal(err)
	}
	return user, nil
}

// List returns users for administrative review.
func (s *Service) List(ctx context.Context, filter Filter) ([]User, error) {
	fields := map[string][]string{}
	if filter.Role != "" && !filter.Role.Valid() {
		fields["role"] = []string{fmt.Sprintf("%q is not a valid choice.", filter.Role)}
	}
	if filter.KYCStatus != "" && !filter.KYCStatus.Valid() {
		fields["kyc_status"] = []string{fmt.Sprintf("%q is not a valid choice.", filter.KYCStatus)}
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation(fields)
	}
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return users, nil
}

// UpdateProfile applies self-service changes. Only full name and email are editable.
func (s *Service) UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) (User, error) {
	if err := validation.Struct(upd); err != nil {
		return User{}, err
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if upd.FullName != nil {
		user.FullName = strings.TrimSpace(*upd.FullName)
	}
	if upd.Email != nil {
		user.Email = strings.TrimSpace(*upd.Email)
	}
	return s.save(ctx, user)
}

// ReviewKYC records an administrative KYC decision. Approval sets the verified flag,
// every other status clears it.
func (s *Service) ReviewKYC(ctx context.Context, id int64, status KYCStatus) (User, error) {
	if !status.Valid() {
		return User{}, apperrors.FieldError("kyc_status", fmt.Sprintf("%q is not a valid choice.", status))
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	user.KYCStatus = status
	user.IsVerified = status == KYCApproved
	updated, err := s.save(ctx, user)
	if err != nil {
		return User{}, err
	}
	s.notify(ctx, notification.Message{
		Kind:        notification.KindKYCDecision,
		Destination: updated.PhoneNumber,
		Body:        kycMessage(status),
	})
	return updated, nil
}

// SetActive enables or soft-disables an account.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if user.IsActive == active {
		return user, nil
	}
	user.IsActive = active
	updated, err := s.save(ctx, user)
	if err != nil {
		return User{}, err
	}
	body := "Your account has been disabled. Contact support for help."
	if active {
		body = "Your account has been re-enabled."
	}
	s.notify(ctx, notification.Message{Kind: notification.KindAccountStatus, Destination: updated.PhoneNumber, Body: body})
	return updated, nil
}

func (s *Service) save(ctx context.Context, user User) (User, error) {
	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, apperrors.NotFound()
		}
		return User{}, apperrors.Internal(err)
	}
	return updated, nil
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil && s.logger != nil {
		s.logger.Warn("notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}

func kycMessage(status KYCStatus) string {
	switch status {
	case KYCApproved:
		return "Your identity documents were approved. Your account is now verified."
	case KYCRejected:
		return "Your identity documents were rejected."
	case KYCResubmissionRequired:
		return "Please resubmit your identity documents."
	case KYCPending:
		return "Your identity documents are under review."
	default:
		return "Your KYC status was reset."
	}
}
