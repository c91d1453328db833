package handlers

// QuizRequest is the body of POST /api/quiz_solver.
type QuizRequest struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
	URL    string `json:"url"`
	Notes  string `json:"notes"`
}

// QuizResponse is the success body of POST /api/quiz_solver.
type QuizResponse struct {
	RunID    string `json:"run_id"`
	ThreadID string `json:"thread_id"`
	Answer   string `json:"answer"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HelloResponse is the body of GET /api/hello.
type HelloResponse struct {
	App       string `json:"app"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Client    string `json:"client"`
}
