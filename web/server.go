package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"credential-scanner/db"
	"credential-scanner/models"
	"credential-scanner/scanjob"
)

// AdminServer exposes the scanner over an admin-key protected HTTP API
type AdminServer struct {
	app      *fiber.App
	database *db.Database
	manager  *scanjob.Manager
	adminKey string
	port     string
}

// NewAdminServer creates the API server and registers all routes
func NewAdminServer(database *db.Database, manager *scanjob.Manager, adminKey, port string) *AdminServer {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"success": false, "error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	server := &AdminServer{
		app:      app,
		database: database,
		manager:  manager,
		adminKey: adminKey,
		port:     port,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (as *AdminServer) setupRoutes() {
	as.app.Get("/api/health", as.handleHealthCheck)

	api := as.app.Group("/api/scraper", as.requireAdminKey)
	api.Post("/scan", as.handleScan)
	api.Get("/scans", as.handleRecentScans)
	api.Get("/results/:searchId", as.handleScanResults)
	api.Get("/all-credentials", as.handleAllCredentials)
	api.Post("/search", as.handleSearch)
	api.Delete("/credential/:id", as.handleDeleteCredential)
	api.Post("/stop/:searchId", as.handleStopScan)
	api.Get("/duplicates", as.handleDuplicates)
	api.Post("/delete-duplicates", as.handleDeleteDuplicates)
	api.Get("/stats", as.handleStats)
}

// requireAdminKey rejects any request whose admin key does not match the
// configured secret. The key may arrive in the X-Admin-Key header or as an
// adminKey field in a JSON body. Rejected requests cause no side effects.
func (as *AdminServer) requireAdminKey(c *fiber.Ctx) error {
	key := c.Get("X-Admin-Key")
	if key == "" && len(c.Body()) > 0 {
		var body struct {
			AdminKey string `json:"adminKey"`
		}
		if err := json.Unmarshal(c.Body(), &body); err == nil {
			key = body.AdminKey
		}
	}

	if as.adminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(as.adminKey)) != 1 {
		return c.Status(403).JSON(fiber.Map{"success": false, "error": "Invalid admin key"})
	}

	return c.Next()
}

// Start starts the API server
func (as *AdminServer) Start() error {
	fmt.Printf("🌐 Starting Credential Scanner API on port %s\n", as.port)
	return as.app.Listen(":" + as.port)
}

// Stop gracefully stops the API server
func (as *AdminServer) Stop() error {
	return as.app.Shutdown()
}

func (as *AdminServer) handleHealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

type scanRequest struct {
	SearchInput string `json:"searchInput"`
	SearchType  string `json:"searchType"`
}

func (as *AdminServer) handleScan(c *fiber.Ctx) error {
	var req scanRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}
	if req.SearchInput == "" || req.SearchType == "" {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "searchInput and searchType are required"})
	}
	if !models.ValidSearchType(models.SearchType(req.SearchType)) {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid search type: " + req.SearchType})
	}

	outcome, err := as.manager.Run(context.Background(), req.SearchInput,
		models.SearchType(req.SearchType), c.IP())
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	resp := fiber.Map{
		"success":    true,
		"searchId":   outcome.SearchID,
		"totalFound": outcome.TotalFound,
		"results":    outcome.Results,
	}
	if outcome.Status == models.SearchStatusStopped {
		resp["stopped"] = true
	}
	return c.JSON(resp)
}

func (as *AdminServer) handleRecentScans(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	scans, err := as.manager.Recent(limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to get scans"})
	}
	return c.JSON(fiber.Map{"success": true, "scans": scans})
}

func (as *AdminServer) handleScanResults(c *fiber.Ctx) error {
	searchID, err := strconv.Atoi(c.Params("searchId"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid search ID"})
	}

	creds, err := as.database.GetCredentialsBySearch(searchID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to get results"})
	}

	return c.JSON(fiber.Map{"success": true, "count": len(creds), "credentials": creds})
}

func (as *AdminServer) handleAllCredentials(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 100)
	category := c.Query("category")

	// Clamp before the query so the totalPages math agrees with the page
	// the store actually returns
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 100
	}

	creds, total, err := as.database.GetAllCredentials(page, limit, category)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to get credentials"})
	}

	totalPages := (total + limit - 1) / limit
	return c.JSON(fiber.Map{
		"success":     true,
		"page":        page,
		"limit":       limit,
		"total":       total,
		"totalPages":  totalPages,
		"credentials": creds,
	})
}

type searchRequest struct {
	Query string `json:"query"`
	Type  string `json:"type"`
}

func (as *AdminServer) handleSearch(c *fiber.Ctx) error {
	var req searchRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}
	if req.Query == "" {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "query is required"})
	}

	mode := db.SearchMode(req.Type)
	switch mode {
	case db.SearchModeEmail, db.SearchModeDomain, db.SearchModeFreetext:
	case "":
		mode = db.SearchModeFreetext
	default:
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid search mode: " + req.Type})
	}

	creds, err := as.database.SearchCredentials(req.Query, mode)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to search credentials"})
	}

	return c.JSON(fiber.Map{"success": true, "count": len(creds), "credentials": creds})
}

func (as *AdminServer) handleDeleteCredential(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid credential ID"})
	}

	if err := as.database.DeleteCredential(id); err != nil {
		return c.Status(404).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	return c.JSON(fiber.Map{"success": true, "message": fmt.Sprintf("Credential %d deleted", id)})
}

func (as *AdminServer) handleStopScan(c *fiber.Ctx) error {
	searchID, err := strconv.Atoi(c.Params("searchId"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid search ID"})
	}

	stopped := as.manager.Stop(searchID)
	return c.JSON(fiber.Map{"success": true, "stopped": stopped})
}

func (as *AdminServer) handleDuplicates(c *fiber.Ctx) error {
	groups, err := as.database.FindDuplicateGroups()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to find duplicates"})
	}

	// duplicateCount is the number of redundant rows, i.e. what
	// delete-duplicates would remove
	duplicates := 0
	for _, group := range groups {
		duplicates += group.Size() - 1
	}
	return c.JSON(fiber.Map{
		"success":        true,
		"count":          len(groups),
		"duplicateCount": duplicates,
		"groups":         groups,
	})
}

func (as *AdminServer) handleDeleteDuplicates(c *fiber.Ctx) error {
	deleted, err := as.database.RemoveDuplicates()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to delete duplicates"})
	}
	return c.JSON(fiber.Map{"success": true, "deleted": deleted})
}

func (as *AdminServer) handleStats(c *fiber.Ctx) error {
	stats, err := as.database.GetStats()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to get stats"})
	}
	return c.JSON(fiber.Map{"success": true, "stats": stats})
}
