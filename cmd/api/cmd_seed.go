package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/modules/auth"
	"github.com/georgemunganga/prepick-backend/internal/modules/catalog"
	"github.com/georgemunganga/prepick-backend/internal/modules/user"
	"github.com/georgemunganga/prepick-backend/internal/session"
)

type seedProduct struct {
	name     string
	price    int
	category string
}

type seedShop struct {
	owner    string
	email    string
	shop     user.ShopSeed
	products []seedProduct
}

var demoShops = []seedShop{
	{
		owner: "Rajesh Kumar",
		email: "shopowner1@prepick.local",
		shop: user.ShopSeed{
			ShopName: "Kumar General Store", ShopCategory: "General Store", ShopPhone: "+91 9876543210",
			ShopGpayNumber: "9876543210", ShopAddress: "123 Main Street, Mumbai", ShopOpeningHours: "8:00 AM - 10:00 PM",
		},
		products: []seedProduct{
			{"Rice (1kg)", 60, "Groceries"},
			{"Wheat Flour (1kg)", 45, "Groceries"},
			{"Sugar (1kg)", 50, "Groceries"},
			{"Tea Powder (250g)", 120, "Groceries"},
			{"Milk (1L)", 65, "Dairy"},
			{"Cooking Oil (1L)", 150, "Groceries"},
			{"Toothpaste", 80, "Personal Care"},
		},
	},
	{
		owner: "Priya Sharma",
		email: "shopowner2@prepick.local",
		shop: user.ShopSeed{
			ShopName: "City Medical Store", ShopCategory: "Medical", ShopPhone: "+91 9876543211",
			ShopGpayNumber: "9876543211", ShopAddress: "456 Park Road, Mumbai", ShopOpeningHours: "7:00 AM - 11:00 PM",
		},
		products: []seedProduct{
			{"Paracetamol 500mg (10 tablets)", 15, "Medicine"},
			{"Cough Syrup", 95, "Medicine"},
			{"Band-Aid (Pack of 10)", 25, "First Aid"},
			{"Antiseptic Cream", 60, "First Aid"},
			{"Digital Thermometer", 250, "Medical Devices"},
		},
	},
	{
		owner: "Anita Desai",
		email: "shopowner3@prepick.local",
		shop: user.ShopSeed{
			ShopName: "Fresh Bakery", ShopCategory: "Bakery", ShopPhone: "+91 9876543212",
			ShopGpayNumber: "9876543212", ShopAddress: "789 Sweet Lane, Mumbai", ShopOpeningHours: "6:00 AM - 9:00 PM",
		},
		products: []seedProduct{
			{"White Bread", 40, "Bread"},
			{"Brown Bread", 50, "Bread"},
			{"Chocolate Cake", 350, "Cakes"},
			{"Croissant (3 pcs)", 90, "Pastries"},
		},
	},
}

var seedPassword string

// prepick seed: load demo shops, products and a customer.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo shops, products and a customer account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		for _, s := range demoShops {
			if err := seedOne(ctx, a, s); err != nil {
				return fmt.Errorf("seed %s: %w", s.shop.ShopName, err)
			}
		}
		_, err = a.auth.SignUp(ctx, auth.SignUpRequest{
			Email: "customer1@prepick.local", Password: seedPassword, Name: "John Doe", Role: session.RoleCustomer,
		})
		if err != nil && !errors.Is(err, apperr.ErrConflict) {
			return err
		}
		a.log.Info("seed complete", "shops", len(demoShops))
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedPassword, "password", "prepick123", "password of every demo account")
}

func seedOne(ctx context.Context, a *app, s seedShop) error {
	seed := s.shop
	res, err := a.auth.SignUp(ctx, auth.SignUpRequest{
		Email: s.email, Password: seedPassword, Name: s.owner, Role: session.RoleShop, Seed: &seed,
	})
	if errors.Is(err, apperr.ErrConflict) {
		a.log.Info("seed: owner already present", "email", s.email)
		return nil
	}
	if err != nil {
		return err
	}

	owner := session.Identity{UserID: res.Profile.ID, Role: session.RoleShop, Name: s.owner, Email: s.email}
	sh, err := a.shops.ForOwner(ctx, owner.UserID)
	if err != nil {
		return err
	}
	if _, err := a.shops.Verify(ctx, sh.ID); err != nil {
		return err
	}

	reqs := make([]catalog.ProductRequest, 0, len(s.products))
	for _, p := range s.products {
		reqs = append(reqs, catalog.ProductRequest{
			Name:     p.name,
			Price:    json.RawMessage(fmt.Sprint(p.price)),
			Category: p.category,
		})
	}
	if _, err := a.catalog.AddBulk(ctx, owner, sh.ID, reqs); err != nil {
		return err
	}
	a.log.Info("seed: shop ready", "shop_id", sh.ID, "name", sh.Name, "products", len(reqs))
	return nil
}
