package users

import (
	"context"

	"github.com/2beens/logingate/internal/telemetry/tracing"
	"github.com/2beens/logingate/pkg"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// UserExists reports whether a user with the given name and password exists.
// The password hash is computed by the database at query time.
func (r *Repo) UserExists(ctx context.Context, name, password string) (exists bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.userExists")
	defer func() { tracing.EndSpan(span, err, "checked") }()
	span.SetAttributes(attribute.String("user.name", name))

	if r.db == nil {
		return false, &StoreError{Op: "user exists", Err: ErrStoreUnavailable}
	}

	if err := r.db.QueryRow(
		ctx,
		`SELECT
			EXISTS(
				SELECT 1
				FROM users
				WHERE user_name = $1
					AND password = encode(sha256(convert_to($2, 'UTF8')), 'hex')
			) AS user_exists;`,
		name, password,
	).Scan(&exists); err != nil {
		return false, &StoreError{Op: "user exists", Err: err}
	}

	return exists, nil
}

// CreateUser inserts the user with its password hashed by the database.
// Any insert failure, a taken name included, is logged and reported as false.
func (r *Repo) CreateUser(ctx context.Context, user *User) bool {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.createUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.name", user.Name))

	if r.db == nil {
		log.Errorf("create user [%s]: %s", user.Name, ErrStoreUnavailable)
		return false
	}

	tag, err := r.db.Exec(
		ctx,
		`INSERT INTO users (user_name, phoneNumber, email, password)
		VALUES ($1, $2, $3, encode(sha256(convert_to($4, 'UTF8')), 'hex'));`,
		user.Name, user.PhoneNumber, user.Email, user.Password,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			log.Debugf("create user [%s]: name already taken", user.Name)
		} else {
			log.Errorf("create user [%s]: %s", user.Name, err)
		}
		span.SetAttributes(attribute.Bool("user.created", false))
		return false
	}

	created := tag.RowsAffected() == 1
	span.SetAttributes(attribute.Bool("user.created", created))
	return created
}
