package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Doud-FR/Wiki/internal/authz"
	"github.com/Doud-FR/Wiki/internal/db"
	"github.com/Doud-FR/Wiki/internal/hierarchy"
	"github.com/Doud-FR/Wiki/internal/http/handlers"
	"github.com/Doud-FR/Wiki/internal/http/httputil"
	"github.com/Doud-FR/Wiki/internal/http/middleware"
	"github.com/Doud-FR/Wiki/internal/identity"
	"github.com/Doud-FR/Wiki/internal/ledger"
	"github.com/Doud-FR/Wiki/internal/metrics"
	"github.com/Doud-FR/Wiki/internal/security"
)

// Setup wires the services over database and returns the API router.
func Setup(database *db.DB, sessionStore *security.SessionStore, m *metrics.Metrics, logger *zap.Logger) *mux.Router {
	engine := authz.NewEngine(database, database,
		authz.WithLogger(logger.Named("authz")),
		authz.WithObserver(m.ObserveDecision))
	grants := ledger.NewService(database, engine, logger.Named("ledger"))
	tree := hierarchy.NewService(database, engine, grants, logger.Named("hierarchy"))
	users := identity.NewUsers(database, logger.Named("users"))
	groups := identity.NewGroups(database, logger.Named("groups"))

	authHandler := handlers.NewAuthHandler(database, users, sessionStore, logger)
	userHandler := handlers.NewUserHandler(users, logger)
	groupHandler := handlers.NewGroupHandler(groups, logger)
	documentHandler := handlers.NewDocumentHandler(tree, logger)
	permissionHandler := handlers.NewPermissionHandler(grants, logger)
	auth := middleware.NewAuth(sessionStore, users, logger)

	r := mux.NewRouter()
	r.Use(middleware.Recover(logger), middleware.AccessLog(logger, m))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.Errorf(w, http.StatusNotFound, "route not found")
	})

	r.HandleFunc("/api/health", handlers.Health).Methods("GET")
	r.Handle("/metrics", m.Handler()).Methods("GET")

	r.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/auth/logout", authHandler.Logout).Methods("POST")
	r.HandleFunc("/api/auth/admin-status", authHandler.AdminStatus).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.RequireUser)

	api.HandleFunc("/auth/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/auth/profile", authHandler.UpdateProfile).Methods("PUT")
	api.HandleFunc("/auth/password", authHandler.ChangePassword).Methods("PUT")

	adminOnly := func(h http.HandlerFunc) http.Handler { return middleware.RequireAdmin(h) }
	api.Handle("/users", adminOnly(userHandler.GetAllUsers)).Methods("GET")
	api.Handle("/users", adminOnly(userHandler.CreateUser)).Methods("POST")
	api.Handle("/users/{id:[0-9]+}", adminOnly(userHandler.DeleteUser)).Methods("DELETE")
	api.HandleFunc("/users/{id:[0-9]+}", userHandler.GetUser).Methods("GET")
	api.HandleFunc("/users/{id:[0-9]+}", userHandler.UpdateUser).Methods("PUT")

	api.HandleFunc("/groups", groupHandler.List).Methods("GET")
	api.HandleFunc("/groups", groupHandler.Create).Methods("POST")
	api.HandleFunc("/groups/{id:[0-9]+}", groupHandler.Get).Methods("GET")
	api.HandleFunc("/groups/{id:[0-9]+}", groupHandler.Update).Methods("PUT")
	api.HandleFunc("/groups/{id:[0-9]+}", groupHandler.Delete).Methods("DELETE")
	api.HandleFunc("/groups/{id:[0-9]+}/members", groupHandler.AddMember).Methods("POST")
	api.HandleFunc("/groups/{id:[0-9]+}/members/{userId:[0-9]+}", groupHandler.RemoveMember).Methods("DELETE")

	api.HandleFunc("/documents", documentHandler.List).Methods("GET")
	api.HandleFunc("/documents/folder", documentHandler.CreateFolder).Methods("POST")
	api.HandleFunc("/documents/folder/{id:[0-9]+}", documentHandler.GetFolder).Methods("GET")
	api.HandleFunc("/documents/folder/{id:[0-9]+}", documentHandler.DeleteFolder).Methods("DELETE")
	api.HandleFunc("/documents/document", documentHandler.CreateDocument).Methods("POST")
	api.HandleFunc("/documents/document/{id:[0-9]+}", documentHandler.GetDocument).Methods("GET")
	api.HandleFunc("/documents/document/{id:[0-9]+}", documentHandler.UpdateDocument).Methods("PUT")
	api.HandleFunc("/documents/document/{id:[0-9]+}", documentHandler.DeleteDocument).Methods("DELETE")

	perms := "/permissions/{resourceType}/{resourceId:[0-9]+}"
	api.HandleFunc(perms, permissionHandler.List).Methods("GET")
	api.HandleFunc(perms, permissionHandler.Grant).Methods("PUT")
	api.HandleFunc(perms+"/check", permissionHandler.Check).Methods("GET")
	api.HandleFunc(perms+"/{subjectType}/{subjectId:[0-9]+}", permissionHandler.Revoke).Methods("DELETE")

	return r
}
