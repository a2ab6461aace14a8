package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// newRouter builds the full route table described in SPEC_FULL.md §6.
func (a *API) newRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(a.traceRequest)
	r.Use(a.recordMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Language"},
		ExposedHeaders:   []string{"admin", "instructor", "student"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", a.handleHealthz)
	r.Post("/login", a.handleLogin)
	r.Post("/signup", a.handleSignup)

	r.Route("/admin", func(ar chi.Router) {
		ar.Use(a.requireAdmin)
		ar.Post("/create_class", a.handleCreateClass)
	})

	r.Route("/instructor/{class_number}", func(ir chi.Router) {
		ir.Use(a.requireInstructor)
		ir.Put("/add_instructor", a.handleAddInstructor)
		ir.Put("/add_student", a.handleAddStudent)
		ir.Post("/add_assignment", a.handleAddAssignment)
		ir.Put("/{aid}/update_assignment", a.handleUpdateAssignment)
		ir.Get("/{aid}/retrieve_scores", a.handleRetrieveScores)
		ir.Get("/{aid}/retrieve_full_assignment", a.handleRetrieveFullAssignment)
		ir.Get("/{aid}/download/{username}", a.handleDownloadSubmission)
		ir.Get("/generate_join_code", a.handleGenerateJoinCode)
		ir.Get("/list_all_students", a.handleListAllStudents)
	})

	r.Route("/student/{class_number}", func(sr chi.Router) {
		sr.Use(a.requireStudent)
		sr.Post("/{aid}/{tid}/submit", a.handleSubmit)
		sr.Get("/{aid}/{tid}/retrieve_score", a.handleRetrieveScore)
		sr.Get("/{aid}/{tid}/download_material", a.handleDownloadMaterial)
		sr.Get("/{aid}", a.handleRetrieveFullAssignment)
		sr.Get("/", a.handleListAssignments)
	})

	r.Group(func(gr chi.Router) {
		gr.Use(a.requireAuthenticated)
		gr.Put("/join_class", a.handleJoinClass)
		gr.Get("/get_classes", a.handleGetClasses)
		gr.Get("/list_all_students", a.handleListAllStudents)
		gr.Get("/get_supported_languages", a.handleGetSupportedLanguages)
	})

	return r
}

func clientIP(r *http.Request) string {
	return r.RemoteAddr
}
