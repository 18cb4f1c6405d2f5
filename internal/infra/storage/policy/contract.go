package policy

import "github.com/m04kA/SMC-ClinicBooking/pkg/dbmetrics"

// DBExecutor интерфейс выполнения запросов (поддерживает транзакцию из контекста)
type DBExecutor = dbmetrics.DBExecutor
