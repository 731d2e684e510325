package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/prn-tf/academia/internal/domain"
	"github.com/prn-tf/academia/internal/repository"
)

// profileRepository implements repository.ProfileRepository for SQLite.
type profileRepository struct {
	db *DB
}

// NewProfileRepository creates a new SQLite profile repository.
func NewProfileRepository(db *DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

// CreateIfAbsent inserts the profile unless the user already has one.
func (r *profileRepository) CreateIfAbsent(ctx context.Context, profile *domain.Profile) (bool, error) {
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO profiles (user_id, role, is_approved, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		profile.UserID,
		string(profile.Role),
		boolToInt(profile.IsApproved),
		formatTime(profile.CreatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, domain.ErrUserNotFound
		}
		return false, fmt.Errorf("failed to create profile: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()

	stored, err := r.GetByUserID(ctx, profile.UserID)
	if err != nil {
		return false, err
	}
	*profile = *stored

	return rowsAffected > 0, nil
}

// GetByUserID retrieves the profile of a user.
func (r *profileRepository) GetByUserID(ctx context.Context, userID int64) (*domain.Profile, error) {
	query := `
		SELECT id, user_id, role, is_approved, created_at
		FROM profiles
		WHERE user_id = ?
	`

	profile, err := scanProfile(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// Update updates role and approval of an existing profile.
func (r *profileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET role = ?, is_approved = ? WHERE user_id = ?`,
		string(profile.Role),
		boolToInt(profile.IsApproved),
		profile.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrProfileNotFound
	}

	return nil
}

// ListPending returns unapproved profiles with their users, newest first.
func (r *profileRepository) ListPending(ctx context.Context) ([]*domain.PendingUser, error) {
	query := `
		SELECT p.id, p.user_id, p.role, p.is_approved, p.created_at,
		       u.id, u.username, u.email, u.first_name, u.last_name, u.password_hash,
		       u.is_active, u.is_superuser, u.created_at, u.updated_at
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.is_approved = 0
		ORDER BY p.created_at DESC, p.id DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending profiles: %w", err)
	}
	defer rows.Close()

	var pending []*domain.PendingUser
	for rows.Next() {
		profile := &domain.Profile{}
		user := &domain.User{}
		var role, profileCreated, userCreated, userUpdated string
		var approved, isActive, isSuperuser int

		err := rows.Scan(
			&profile.ID, &profile.UserID, &role, &approved, &profileCreated,
			&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName, &user.PasswordHash,
			&isActive, &isSuperuser, &userCreated, &userUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending profile: %w", err)
		}

		profile.Role = domain.Role(role)
		profile.IsApproved = approved != 0
		profile.CreatedAt = parseTime(profileCreated)
		user.IsActive = isActive != 0
		user.IsSuperuser = isSuperuser != 0
		user.CreatedAt = parseTime(userCreated)
		user.UpdatedAt = parseTime(userUpdated)

		pending = append(pending, &domain.PendingUser{User: user, Profile: profile})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending profiles: %w", err)
	}

	return pending, nil
}

// ListUnprovisioned returns approved profiles missing their domain profile.
func (r *profileRepository) ListUnprovisioned(ctx context.Context, afterID int64, limit int) ([]*domain.Inconsistency, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	query := `
		SELECT p.user_id, u.username, p.role
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		LEFT JOIN faculty f ON f.user_id = p.user_id
		LEFT JOIN students s ON s.user_id = p.user_id
		WHERE p.is_approved = 1
		  AND p.user_id > ?
		  AND ((p.role = 'FACULTY' AND f.id IS NULL) OR (p.role = 'STUDENT' AND s.id IS NULL))
		ORDER BY p.user_id
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprovisioned profiles: %w", err)
	}
	defer rows.Close()

	var found []*domain.Inconsistency
	for rows.Next() {
		item := &domain.Inconsistency{}
		var role string
		if err := rows.Scan(&item.UserID, &item.Username, &role); err != nil {
			return nil, fmt.Errorf("failed to scan unprovisioned profile: %w", err)
		}
		item.Role = domain.Role(role)
		found = append(found, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unprovisioned profiles: %w", err)
	}

	return found, nil
}

func scanProfile(row scanner) (*domain.Profile, error) {
	profile := &domain.Profile{}
	var role, createdAt string
	var approved int

	if err := row.Scan(&profile.ID, &profile.UserID, &role, &approved, &createdAt); err != nil {
		return nil, err
	}

	profile.Role = domain.Role(role)
	profile.IsApproved = approved != 0
	profile.CreatedAt = parseTime(createdAt)
	return profile, nil
}

// Ensure profileRepository implements repository.ProfileRepository.
var _ repository.ProfileRepository = (*profileRepository)(nil)
