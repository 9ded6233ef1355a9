package health

type Input struct{}

type Output struct {
	Body Response
}

// Response — ответ проверки живости. Устройства опрашивают ее перед
// раундом синхронизации, чтобы отличить недоступный сервер от
// отвергнутого пакета.
type Response struct {
	Status string `json:"status" example:"OK" doc:"Server liveness status"`
}
