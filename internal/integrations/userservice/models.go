package userservice

import "github.com/m04kA/SMC-ClinicBooking/internal/domain"

// User модель пользователя из UserService
type User struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"` // patient, dentist, staff, admin
}

// DomainRole роль пользователя в доменной модели
func (u *User) DomainRole() domain.Role {
	return domain.Role(u.Role)
}

// ErrorResponse модель ошибки от UserService
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
