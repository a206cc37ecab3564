package Models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"Aerofield/Ledger"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user is inactive")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
)

// User is a login account. Employees double as workers: their Name is what
// task assignees and progress entries refer to.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Name      string    `json:"name" gorm:"uniqueIndex;size:120"`
	Email     string    `json:"email" gorm:"uniqueIndex;size:190"`
	Password  []byte    `json:"-"`
	Role      string    `json:"role" gorm:"size:16"`
	Active    bool      `json:"active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) Actor() Ledger.Actor {
	return Ledger.Actor{ID: u.ID, Name: u.Name, Role: Ledger.Role(u.Role)}
}

// CreateUser hashes the password and stores a new active account.
func CreateUser(db *gorm.DB, name, email, password string, role Ledger.Role) (User, error) {
	if role != Ledger.RoleAdmin && role != Ledger.RoleEmployee {
		return User{}, fmt.Errorf("unknown role %q", role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(name),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: hash,
		Role:     string(role),
		Active:   true,
	}
	var taken int64
	if err := db.Model(&User{}).Where("email = ? OR name = ?", user.Email, user.Name).Count(&taken).Error; err != nil {
		return User{}, fmt.Errorf("check user: %w", err)
	}
	if taken > 0 {
		return User{}, ErrUserExists
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return User{}, ErrUserExists
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate checks the credentials of an active account.
func Authenticate(db *gorm.DB, email, password string) (User, error) {
	var user User
	err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(user.Password, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !user.Active {
		return User{}, ErrUserInactive
	}
	return user, nil
}

func FindUser(db *gorm.DB, id string) (User, error) {
	var user User
	err := db.Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrUserNotFound
	}
	return user, err
}

func ListUsers(db *gorm.DB) ([]User, error) {
	var users []User
	err := db.Order("created_at, name").Find(&users).Error
	return users, err
}

// SetActive enables or disables an account. Disabled employees no longer
// appear in earnings.
func SetActive(db *gorm.DB, id string, active bool) (User, error) {
	res := db.Model(&User{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return User{}, res.Error
	}
	if res.RowsAffected == 0 {
		return User{}, ErrUserNotFound
	}
	return FindUser(db, id)
}
