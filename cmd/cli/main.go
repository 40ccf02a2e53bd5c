package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/alextreichler/estatehub/internal/blob"
	"github.com/alextreichler/estatehub/internal/config"
	"github.com/alextreichler/estatehub/internal/models"
	"github.com/alextreichler/estatehub/internal/service"
	"github.com/alextreichler/estatehub/internal/store"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const usage = "expected 'add-admin', 'add-city' or 'refresh-city-counts' subcommand"

func main() {
	addAdminCmd := flag.NewFlagSet("add-admin", flag.ExitOnError)
	adminEmail := addAdminCmd.String("email", "", "Email for the new admin")
	adminPassword := addAdminCmd.String("password", "", "Password for the new admin")
	adminName := addAdminCmd.String("name", "Administrator", "Display name for the new admin")

	addCityCmd := flag.NewFlagSet("add-city", flag.ExitOnError)
	cityName := addCityCmd.String("name", "", "City name")
	cityState := addCityCmd.String("state", "", "State the city belongs to")
	cityImage := addCityCmd.String("image", "", "Public path of the city image")
	cityInactive := addCityCmd.Bool("inactive", false, "Hide the city from the home page")

	refreshCmd := flag.NewFlagSet("refresh-city-counts", flag.ExitOnError)

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "add-admin":
		addAdminCmd.Parse(os.Args[2:])
		if *adminEmail == "" || *adminPassword == "" {
			fmt.Println("email and password are required")
			addAdminCmd.PrintDefaults()
			os.Exit(1)
		}
		db, cfg := openStore(ctx)
		defer db.Close()
		createAdmin(ctx, db, cfg, *adminName, *adminEmail, *adminPassword)
	case "add-city":
		addCityCmd.Parse(os.Args[2:])
		if strings.TrimSpace(*cityName) == "" || strings.TrimSpace(*cityState) == "" {
			fmt.Println("name and state are required")
			addCityCmd.PrintDefaults()
			os.Exit(1)
		}
		db, _ := openStore(ctx)
		defer db.Close()
		c := &models.City{
			Name:     cases.Title(language.English).String(strings.TrimSpace(*cityName)),
			State:    strings.TrimSpace(*cityState),
			Image:    *cityImage,
			IsActive: !*cityInactive,
		}
		if err := db.UpsertCity(ctx, c); err != nil {
			log.Fatalf("Failed to save city: %v", err)
		}
		fmt.Printf("City '%s' saved.\n", c.Name)
	case "refresh-city-counts":
		refreshCmd.Parse(os.Args[2:])
		db, _ := openStore(ctx)
		defer db.Close()
		n, err := db.RefreshCityCounts(ctx)
		if err != nil {
			log.Fatalf("Failed to refresh city counts: %v", err)
		}
		fmt.Printf("Refreshed property counts for %d cities.\n", n)
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}

// openStore connects with the server's configuration, creating the schema
// when the CLI runs before the server.
func openStore(ctx context.Context) (*store.Store, *config.Config) {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	db, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	return db, cfg
}

func createAdmin(ctx context.Context, db *store.Store, cfg *config.Config, name, email, password string) {
	accounts := service.NewAccounts(db, blob.NewFileStore(cfg.UploadDir, "/images"))
	created, err := accounts.EnsureAdmin(ctx, name, email, password)
	if err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}
	if !created {
		fmt.Printf("An account for '%s' already exists.\n", email)
		return
	}
	fmt.Printf("Admin '%s' created successfully.\n", email)
}
