package migrate

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"jellymigrate/internal/ledger"
	"jellymigrate/internal/logging"
)

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// PlexUsers creates a Jellyfin account for every Plex user sharing the
// configured server. Passwords are generated only when enabled in the
// migration options.
func (o *Orchestrator) PlexUsers(ctx context.Context) (*Report, error) {
	ctx, r := o.start(ctx, "users")
	return r.finish(ctx, o.plexUsers(ctx, r))
}

func (o *Orchestrator) plexUsers(ctx context.Context, r *run) error {
	if err := o.authenticate(ctx); err != nil {
		return err
	}
	users, err := o.source.SharedUsers(ctx)
	if err != nil {
		return fmt.Errorf("list plex users: %w", err)
	}
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	return o.createUsers(ctx, r, names, o.opts.GeneratePasswords)
}

// CopyUsers creates a Jellyfin account for every account on source, each
// with a generated password.
func (o *Orchestrator) CopyUsers(ctx context.Context, source UserSource) (*Report, error) {
	ctx, r := o.start(ctx, "copy-users")
	return r.finish(ctx, o.copyUsers(ctx, r, source))
}

func (o *Orchestrator) copyUsers(ctx context.Context, r *run, source UserSource) error {
	if err := o.authenticate(ctx); err != nil {
		return err
	}
	users, err := source.Users(ctx)
	if err != nil {
		return fmt.Errorf("list source jellyfin users: %w", err)
	}
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Name)
	}
	return o.createUsers(ctx, r, names, true)
}

func (o *Orchestrator) createUsers(ctx context.Context, r *run, names []string, withPassword bool) error {
	filtered := names[:0:0]
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			filtered = append(filtered, name)
		}
	}
	r.expect(len(filtered))
	return forEach(ctx, o.opts.Workers, filtered, func(ctx context.Context, name string) error {
		return o.createUser(ctx, r, name, withPassword)
	})
}

// createUser creates one account, optionally sets a password, then applies
// the default configuration and policy. A failed password update leaves the
// account without one; a failed policy update fails the account.
func (o *Orchestrator) createUser(ctx context.Context, r *run, name string, withPassword bool) error {
	result := Result{Kind: KindUser, Title: name}
	if o.opts.DryRun {
		result.Status = ledger.StatusSkipped
		result.Detail = "dry run"
		r.record(ctx, result)
		return nil
	}

	user, err := o.dest.CreateUser(ctx, name)
	if err != nil {
		if fatal(err) {
			return err
		}
		result.Status = ledger.StatusFailed
		result.Err = err
		r.record(ctx, result)
		return nil
	}
	result.DestinationID = user.ID
	logger := r.logger.With(logging.String("user", name), logging.String("user_id", user.ID))

	password := ""
	if withPassword {
		password, err = o.setPassword(ctx, user.ID)
		if err != nil {
			logging.WarnWithContext(logger, "password update failed", "password_update_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "account created without a password"),
			)
			password = ""
		}
	}

	if err := o.dest.UpdateConfiguration(ctx, user.ID, nil); err != nil {
		logging.WarnWithContext(logger, "configuration update failed", "configuration_update_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "account keeps server default display settings"),
		)
	}

	if err := o.dest.UpdatePolicy(ctx, user.ID, nil); err != nil {
		if fatal(err) {
			return err
		}
		result.Status = ledger.StatusFailed
		result.Detail = "policy not applied"
		result.Err = err
		r.record(ctx, result)
		return nil
	}

	r.addCredential(Credential{Username: name, UserID: user.ID, Password: password})
	result.Status = ledger.StatusMigrated
	r.record(ctx, result)
	return nil
}

// setPassword clears the password of id and sets a generated one.
func (o *Orchestrator) setPassword(ctx context.Context, id string) (string, error) {
	password, err := GeneratePassword(o.opts.PasswordLength)
	if err != nil {
		return "", err
	}
	if err := o.dest.ResetPassword(ctx, id); err != nil {
		return "", err
	}
	if err := o.dest.SetPassword(ctx, id, "", password); err != nil {
		return "", err
	}
	return password, nil
}

// GeneratePassword returns a random alphanumeric string of length n.
func GeneratePassword(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("password length must be positive, got %d", n)
	}
	limit := big.NewInt(int64(len(passwordAlphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		b.WriteByte(passwordAlphabet[idx.Int64()])
	}
	return b.String(), nil
}
