package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-ClinicBooking/internal/domain"
)

// PathID читает положительный ID из переменной маршрута
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return id, nil
}

// PathSource читает источник бронирования из переменной маршрута {source}
func PathSource(r *http.Request) (domain.BookingSource, error) {
	return domain.ParseBookingSource(mux.Vars(r)["source"])
}

// QueryDate читает необязательную дату YYYY-MM-DD из query параметра
func QueryDate(r *http.Request, name string) (*time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return nil, nil
	}
	date, err := time.Parse(domain.DateFormat, value)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

// QueryString читает необязательный строковый query параметр
func QueryString(r *http.Request, name string) *string {
	value := r.URL.Query().Get(name)
	if value == "" {
		return nil
	}
	return &value
}
