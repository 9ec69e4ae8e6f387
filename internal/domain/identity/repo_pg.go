package identity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/db"
)

// =========== User Repository ===========

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) db.Queryable { return db.Querier(ctx, r.pool) }

const userCols = `user_id, name, email, phone, password_hash, age, gender, location, address,
	is_verified, created_at, updated_at`

func (r *userRepoPG) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.UserID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Age, &u.Gender,
		&u.Location, &u.Address, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func userWriteError(err error) error {
	switch {
	case db.IsUniqueViolation(err, "users_email_key"):
		return apperr.BadInput("Email already registered")
	case db.IsUniqueViolation(err, "users_phone_key"):
		return apperr.BadInput("Phone already registered")
	}
	return err
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (name, email, phone, password_hash, age, gender, location, address)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING user_id, is_verified, created_at, updated_at`,
		u.Name, u.Email, u.Phone, u.PasswordHash, u.Age, u.Gender, u.Location, u.Address,
	).Scan(&u.UserID, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt)
	return userWriteError(err)
}

func (r *userRepoPG) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE user_id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email))
}

func (r *userRepoPG) GetByPhone(ctx context.Context, phone string) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE phone = $1`, phone))
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE users SET name=$2, phone=$3, age=$4, gender=$5, location=$6, address=$7, updated_at=NOW()
		WHERE user_id = $1
		RETURNING updated_at`,
		u.UserID, u.Name, u.Phone, u.Age, u.Gender, u.Location, u.Address,
	).Scan(&u.UpdatedAt)
	if db.IsNoRows(err) {
		return errUserNotFound
	}
	return userWriteError(err)
}

func (r *userRepoPG) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+userCols+` FROM users ORDER BY user_id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}

// =========== Doctor Repository ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository { return &doctorRepoPG{pool: pool} }

func (r *doctorRepoPG) conn(ctx context.Context) db.Queryable { return db.Querier(ctx, r.pool) }

const doctorCols = `doctor_id, name, email, phone, password_hash, specialization, license_number,
	experience_years, qualifications, bio, status, hospital_id, consultation_fee, availability,
	is_online, created_at, updated_at`

func (r *doctorRepoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.DoctorID, &d.Name, &d.Email, &d.Phone, &d.PasswordHash, &d.Specialization,
		&d.LicenseNumber, &d.ExperienceYears, &d.Qualifications, &d.Bio, &d.Status, &d.HospitalID,
		&d.ConsultationFee, &d.Availability, &d.IsOnline, &d.CreatedAt, &d.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, errDoctorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctors (name, email, phone, password_hash, specialization, license_number,
			experience_years, qualifications, bio, status, hospital_id, consultation_fee, availability)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING doctor_id, is_online, created_at, updated_at`,
		d.Name, d.Email, d.Phone, d.PasswordHash, d.Specialization, d.LicenseNumber,
		d.ExperienceYears, d.Qualifications, d.Bio, d.Status, d.HospitalID, d.ConsultationFee, d.Availability,
	).Scan(&d.DoctorID, &d.IsOnline, &d.CreatedAt, &d.UpdatedAt)
	if db.IsUniqueViolation(err, "doctors_email_key") {
		return apperr.BadInput("Email already registered")
	}
	if db.IsForeignKeyViolation(err, "doctors_hospital_id_fkey") {
		return apperr.NotFound("Hospital not found")
	}
	return err
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id int64) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE doctor_id = $1`, id))
}

func (r *doctorRepoPG) GetByEmail(ctx context.Context, email string) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE email = $1`, email))
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE doctors SET phone=$2, specialization=$3, qualifications=$4, bio=$5,
			consultation_fee=$6, availability=$7, is_online=$8, updated_at=NOW()
		WHERE doctor_id = $1
		RETURNING updated_at`,
		d.DoctorID, d.Phone, d.Specialization, d.Qualifications, d.Bio,
		d.ConsultationFee, d.Availability, d.IsOnline,
	).Scan(&d.UpdatedAt)
	if db.IsNoRows(err) {
		return errDoctorNotFound
	}
	return err
}

func (r *doctorRepoPG) UpdateStatus(ctx context.Context, id int64, status DoctorStatus) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE doctors SET status=$2, updated_at=NOW() WHERE doctor_id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errDoctorNotFound
	}
	return nil
}

func (r *doctorRepoPG) Search(ctx context.Context, q DoctorQuery, limit, offset int) ([]*Doctor, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if q.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, q.Status)
		idx++
	}
	if q.Name != "" {
		where += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		args = append(args, db.ContainsPattern(q.Name))
		idx++
	}
	if q.Specialization != "" {
		where += fmt.Sprintf(` AND specialization ILIKE $%d`, idx)
		args = append(args, db.ContainsPattern(q.Specialization))
		idx++
	}
	if q.HospitalID != 0 {
		where += fmt.Sprintf(` AND hospital_id = $%d`, idx)
		args = append(args, q.HospitalID)
		idx++
	}
	if q.MinExperience > 0 {
		where += fmt.Sprintf(` AND experience_years >= $%d`, idx)
		args = append(args, q.MinExperience)
		idx++
	}
	if q.MaxFee > 0 {
		where += fmt.Sprintf(` AND consultation_fee <= $%d`, idx)
		args = append(args, q.MaxFee)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + doctorCols + ` FROM doctors` + where +
		fmt.Sprintf(` ORDER BY doctor_id LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := r.scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

// =========== Admin Repository ===========

type adminRepoPG struct{ pool *pgxpool.Pool }

func NewAdminRepoPG(pool *pgxpool.Pool) AdminRepository { return &adminRepoPG{pool: pool} }

func (r *adminRepoPG) conn(ctx context.Context) db.Queryable { return db.Querier(ctx, r.pool) }

func (r *adminRepoPG) Create(ctx context.Context, a *Admin) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO admins (name, email, password_hash) VALUES ($1,$2,$3)
		RETURNING admin_id, created_at`,
		a.Name, a.Email, a.PasswordHash,
	).Scan(&a.AdminID, &a.CreatedAt)
	if db.IsUniqueViolation(err, "admins_email_key") {
		return apperr.Conflict("admin already exists")
	}
	return err
}

func (r *adminRepoPG) GetByEmail(ctx context.Context, email string) (*Admin, error) {
	var a Admin
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT admin_id, name, email, password_hash, created_at FROM admins WHERE email = $1`, email,
	).Scan(&a.AdminID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if db.IsNoRows(err) {
		return nil, errAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
