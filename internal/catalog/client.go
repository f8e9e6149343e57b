// Package catalog is the client for the remote product/user API the
// storefront delegates its catalog and identity data to.
package catalog

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

var (
	// ErrProductNotFound is returned when the upstream has no product with the requested id.
	ErrProductNotFound = errors.New("product not found")
	// ErrUserNotFound is returned when the upstream has no user with the requested id.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned by Login when no user matches the given credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Client talks JSON to the upstream catalog API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a catalog client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Products returns all catalog products.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.get(ctx, "/products", &products); err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return products, nil
}

// ProductByID returns a single product.
// Returns ErrProductNotFound if the upstream does not know the id.
func (c *Client) ProductByID(ctx context.Context, id int) (*Product, error) {
	var product Product
	err := c.get(ctx, "/products/"+strconv.Itoa(id), &product)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to fetch product %d: %w", id, err)
	}
	// The upstream answers some unknown ids with an empty body instead of 404.
	if product.ID == 0 {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

// Categories returns the list of product categories.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := c.get(ctx, "/products/categories", &categories); err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	return categories, nil
}

// ProductsByCategory returns the products belonging to one category.
func (c *Client) ProductsByCategory(ctx context.Context, category string) ([]Product, error) {
	var products []Product
	if err := c.get(ctx, "/products/category/"+url.PathEscape(category), &products); err != nil {
		return nil, fmt.Errorf("failed to fetch products in category %q: %w", category, err)
	}
	return products, nil
}

// Users returns all identity records.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.get(ctx, "/users", &users); err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	return users, nil
}

// UserByID returns a single identity record.
func (c *Client) UserByID(ctx context.Context, id int) (*User, error) {
	var user User
	err := c.get(ctx, "/users/"+strconv.Itoa(id), &user)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user %d: %w", id, err)
	}
	if user.ID == 0 {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

// Login verifies credentials against the user list and mints an opaque token.
// The upstream has no login endpoint, so credentials are matched client-side;
// the token is base64-encoded JSON carrying the user id and username.
// Returns ErrInvalidCredentials when no user matches.
func (c *Client) Login(ctx context.Context, username, password string) (*User, string, error) {
	users, err := c.Users(ctx)
	if err != nil {
		return nil, "", err
	}
	for i := range users {
		if users[i].Username == username && users[i].Password == password {
			token, err := mintToken(&users[i])
			if err != nil {
				return nil, "", err
			}
			return &users[i], token, nil
		}
	}
	return nil, "", ErrInvalidCredentials
}

// errNotFound marks a 404 from the upstream inside get.
var errNotFound = errors.New("not found")

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

func mintToken(user *User) (string, error) {
	claims, err := json.Marshal(map[string]any{
		"userId":   user.ID,
		"username": user.Username,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode token claims: %w", err)
	}
	return base64.StdEncoding.EncodeToString(claims), nil
}
