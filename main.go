package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	initDB := flag.Bool("init", false, "create the schema and exit")
	seedFile := flag.String("seed", "", "load products from a seed file and exit")
	promote := flag.String("promote-admin", "", "give the customer with this email the admin role and exit")
	flag.Parse()

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := NewPostgresStorage(cfg.DatabaseURL, StoreOptions{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	if *initDB || *seedFile != "" || *promote != "" {
		if err := runAdminTasks(ctx, store, *initDB, *seedFile, *promote); err != nil {
			log.Fatal(err)
		}
		return
	}

	var events EventPublisher = nopPublisher{}
	if kp := NewKafkaPublisher(cfg.KafkaBrokers); kp.Enabled() {
		log.Println("publishing domain events to", cfg.KafkaBrokers)
		events = kp
	}
	defer events.Close()

	shop := NewShop(store, events, cfg.BcryptCost)
	server := NewAPIServer(cfg.ListenAddr, shop, NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL), cfg.CORSAllowOrigin)
	if err := server.Run(ctx); err != nil {
		log.Fatal(err)
	}
	log.Println("server stopped")
}

func runAdminTasks(ctx context.Context, store *PostgresStore, initDB bool, seedFile, promote string) error {
	if initDB {
		if err := store.Init(ctx); err != nil {
			return err
		}
	}
	if seedFile != "" {
		if err := store.SeedWithData(ctx, seedFile); err != nil {
			return err
		}
	}
	if promote != "" {
		if err := store.PromoteAdmin(ctx, promote); err != nil {
			return err
		}
		log.Printf("%s is now an admin", promote)
	}
	return nil
}
