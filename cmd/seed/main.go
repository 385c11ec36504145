package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"

	"github.com/RohitSadavarti/vanita.lunch.home/internal/auth"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/config"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/database"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/enum"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

var mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)

type demoItem struct {
	name, category, price, foodType, mealType string
}

var demoMenu = []demoItem{
	{"Veg Thali", "Thali", "120.00", enum.FoodTypeVeg, "Lunch"},
	{"Chicken Thali", "Thali", "180.00", enum.FoodTypeNonVeg, "Lunch"},
	{"Dal Tadka", "Curries", "90.00", enum.FoodTypeVeg, "Lunch"},
	{"Chapati", "Breads", "10.00", enum.FoodTypeVeg, "Lunch"},
	{"Masala Chaas", "Beverages", "25.00", enum.FoodTypeVeg, "All day"},
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  seed create-admin -mobile 9876543210 -password secret")
	fmt.Fprintln(os.Stderr, "  seed demo-menu")
	os.Exit(2)
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	if err := database.Migrate(cfg.Database.URL); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	switch os.Args[1] {
	case "create-admin":
		fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
		mobile := fs.String("mobile", os.Getenv("SEED_MOBILE"), "Admin 10-digit mobile number")
		password := fs.String("password", os.Getenv("SEED_PASSWORD"), "Admin password")
		fs.Parse(os.Args[2:])

		if err := createAdmin(ctx, database.New(pool), *mobile, *password); err != nil {
			log.Fatalf("Failed to create admin: %v", err)
		}
	case "demo-menu":
		if err := seedMenu(ctx, pool); err != nil {
			log.Fatalf("Failed to seed menu: %v", err)
		}
	default:
		usage()
	}
}

// createAdmin provisions an admin account. An existing mobile is refused
// rather than overwritten.
func createAdmin(ctx context.Context, q *database.Queries, mobile, password string) error {
	if !mobilePattern.MatchString(mobile) {
		return errors.New("mobile must be a 10-digit number")
	}
	if password == "" {
		return errors.New("password is required")
	}

	_, err := q.GetAdminByMobile(ctx, mobile)
	if err == nil {
		return fmt.Errorf("admin %s already exists", mobile)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check admin: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	admin, err := q.CreateAdmin(ctx, database.CreateAdminParams{Mobile: mobile, PasswordHash: hash})
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	log.Printf("Created admin %s (ID: %s)", admin.Mobile, admin.ID)
	return nil
}

// seedMenu adds the demo menu in one transaction, only when the menu is empty.
func seedMenu(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	q := database.New(tx)
	existing, err := q.ListMenuItems(ctx, database.ListMenuItemsParams{IncludeUnavailable: true})
	if err != nil {
		return fmt.Errorf("list menu: %w", err)
	}
	if len(existing) > 0 {
		log.Printf("Menu already has %d items, skipping", len(existing))
		return nil
	}

	for _, it := range demoMenu {
		var price pgtype.Numeric
		if err := price.Scan(it.price); err != nil {
			return fmt.Errorf("price %s: %w", it.name, err)
		}
		item, err := q.CreateMenuItem(ctx, database.CreateMenuItemParams{
			Name:        it.name,
			Price:       price,
			Category:    it.category,
			VegNonveg:   it.foodType,
			MealType:    it.mealType,
			IsAvailable: true,
		})
		if err != nil {
			return fmt.Errorf("insert %s: %w", it.name, err)
		}
		log.Printf("Created menu item '%s' (ID: %s)", item.Name, item.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Println("Seed completed successfully")
	return nil
}
