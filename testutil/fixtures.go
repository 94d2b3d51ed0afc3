package testutil

import (
	"context"
	"net/http"
	"shopease/models"
	"shopease/utils"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestSecret signs tokens in tests
const TestSecret = "test-secret"

// AdminUser returns a user with the admin role
func AdminUser() models.User {
	return models.User{
		ID:    primitive.NewObjectID(),
		Name:  "Test Admin",
		Email: "admin@test.com",
		Role:  models.RoleAdmin,
	}
}

// CustomerUser returns a customer with the given email
func CustomerUser(email string) models.User {
	return models.User{
		ID:    primitive.NewObjectID(),
		Name:  "Test Customer",
		Email: email,
		Role:  models.RoleCustomer,
	}
}

// Bearer issues a token for user and formats it as an Authorization value
func Bearer(t *testing.T, tokens *utils.TokenService, user models.User) string {
	t.Helper()
	token, err := tokens.Issue(user)
	if err != nil {
		t.Fatalf("failed to issue test token: %v", err)
	}
	return "Bearer " + token
}

// SetBearer adds an Authorization header for user to req
func SetBearer(t *testing.T, req *http.Request, tokens *utils.TokenService, user models.User) {
	t.Helper()
	req.Header.Set("Authorization", Bearer(t, tokens, user))
}

// CreateProduct inserts a product and fails the test on error
func (m *MemStore) CreateProduct(t *testing.T, name, category string, price float64) models.Product {
	t.Helper()
	p, err := m.Products().Create(context.Background(), models.Product{
		Name:     name,
		Category: category,
		Price:    price,
		Stock:    10,
	})
	if err != nil {
		t.Fatalf("failed to create test product: %v", err)
	}
	return p
}
