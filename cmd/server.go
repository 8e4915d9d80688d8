package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"credential-scanner/web"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the admin API server",
	Long:  `Starts the HTTP API through which scans are launched, stopped and queried. All scraper routes require the configured admin key.`,
	Run:   runServer,
}

var serverPort string

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVarP(&serverPort, "port", "p", "", "API server port (default from config)")
}

func runServer(cmd *cobra.Command, args []string) {
	cfg, database, manager, err := buildComponents(true)
	if err != nil {
		log.Fatal("Failed to initialize components:", err)
	}
	defer database.Close()

	if cfg.Server.AdminKey == "" {
		log.Fatal("No admin key configured; set server.admin_key or ADMIN_KEY")
	}

	port := serverPort
	if port == "" {
		port = fmt.Sprintf("%d", cfg.Server.Port)
	}

	server := web.NewAdminServer(database, manager, cfg.Server.AdminKey, port)

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Shutting down server...")
		if err := server.Stop(); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}
		os.Exit(0)
	}()

	log.Printf("Starting Credential Scanner API on port %s", port)
	log.Printf("API URL: http://localhost:%s/api/scraper", port)

	if err := server.Start(); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
