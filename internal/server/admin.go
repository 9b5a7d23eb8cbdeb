// admin.go - privacy-conscious visitor tracking and the admin area
package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vishwar23/portfolio/internal/config"
	"github.com/vishwar23/portfolio/internal/store"
)

const adminCookie = "admin_token"

type admin struct {
	token        string
	salt         string
	username     string
	passwordHash []byte
	logger       *zap.Logger
	db           *store.DB
}

// newAdmin generates this process's admin token and hashing salt. Both are
// lost on restart, which logs the admin out and rotates visitor hashes.
func newAdmin(cfg *config.Config, logger *zap.Logger, db *store.DB) (*admin, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate admin token: %w", err)
	}
	salt, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate hashing salt: %w", err)
	}

	a := &admin{
		token:    token,
		salt:     salt,
		username: cfg.AdminUsername,
		logger:   logger.Named("admin"),
		db:       db,
	}

	// Default credentials for development (set ADMIN_USERNAME/ADMIN_PASSWORD in production)
	if a.username == "" {
		a.username = "admin"
		a.logger.Warn("Using default admin username. Set ADMIN_USERNAME environment variable.")
	}
	password := cfg.AdminPassword
	if password == "" {
		password = "admin123"
		a.logger.Warn("Using default admin password. Set ADMIN_PASSWORD environment variable.")
	}
	a.passwordHash, err = passwordHash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}

	a.logger.Info("Admin access available at: /admin/login")
	if gin.Mode() == gin.DebugMode {
		a.logger.Debug("Admin token (dev only)", zap.String("token", a.token))
	}
	a.logger.Info("Privacy: visitor tracking enabled with hashed IP addresses")
	return a, nil
}

// passwordHash accepts either a plain password or an existing bcrypt hash
// (ADMIN_PASSWORD='$2a$...'), so the plain password need not live in .env.
func passwordHash(password string) ([]byte, error) {
	if _, err := bcrypt.Cost([]byte(password)); err == nil {
		return []byte(password), nil
	}
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// hash makes a stable, non-reversible identifier for an IP or session id.
func (a *admin) hash(value string) string {
	h := sha256.New()
	h.Write([]byte(value + a.salt))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func (a *admin) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

var untrackedPrefixes = []string{"/static/", "/images/", "/admin/", "/favicon", "/privacy"}

// visitorTracking records page loads with a hashed IP. Static files, the
// admin area and the page's own XHR traffic are skipped, and so is anyone
// sending Do Not Track.
func (a *admin) visitorTracking(background func(func(ctx context.Context))) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.Method != http.MethodGet || path == "/contact/status" || path == "/contact/copy" {
			c.Next()
			return
		}
		for _, prefix := range untrackedPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}
		if c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		hashedIP := a.hash(c.ClientIP())
		userAgent := c.GetHeader("User-Agent")
		background(func(ctx context.Context) {
			if err := a.db.TrackVisitor(ctx, hashedIP, userAgent, path); err != nil {
				a.logger.Warn("Error recording visitor", zap.Error(err))
			}
		})
		c.Next()
	}
}

func (a *admin) routes(r *gin.Engine, background func(func(ctx context.Context))) {
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title": "Privacy Policy",
		})
	})

	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{
			"title": "Admin Login",
		})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		username := c.PostForm("username")
		password := c.PostForm("password")

		userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
		passOK := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
		if userOK && passOK {
			c.SetCookie(adminCookie, a.token, 3600*24, "/admin", "", false, true)
			a.logger.Info("Admin login successful", zap.String("from", a.hash(c.ClientIP())))
			c.Redirect(http.StatusFound, "/admin/dashboard")
			return
		}

		a.logger.Warn("Failed admin login attempt", zap.String("from", a.hash(c.ClientIP())))
		c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
			"title": "Admin Login",
			"error": "Invalid credentials",
		})
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", false, true)
		a.logger.Info("Admin logout", zap.String("from", a.hash(c.ClientIP())))
		c.Redirect(http.StatusFound, "/admin/login")
	})

	group := r.Group("/admin")
	group.Use(a.authMiddleware())

	group.GET("/dashboard", func(c *gin.Context) {
		stats, err := a.db.Stats(c.Request.Context())
		if err != nil {
			a.logger.Error("Error loading admin stats", zap.Error(err))
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load statistics",
			})
			return
		}

		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"stats": stats,
		})
	})

	group.GET("/api/stats", func(c *gin.Context) {
		stats, err := a.db.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	group.GET("/visitors", func(c *gin.Context) {
		visitors, err := a.db.Visitors(c.Request.Context(), 200)
		if err != nil {
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load visitors",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-visitors.html", gin.H{
			"visitors": visitors,
		})
	})

	group.GET("/submissions", func(c *gin.Context) {
		subs, err := a.db.Submissions(c.Request.Context(), 200)
		if err != nil {
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load submissions",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-submissions.html", gin.H{
			"submissions": subs,
		})
	})

	group.POST("/privacy/cleanup", func(c *gin.Context) {
		background(func(ctx context.Context) {
			if _, err := a.db.CleanupOldVisitors(ctx); err != nil {
				a.logger.Error("Error cleaning up old visitor data", zap.Error(err))
			}
		})
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup initiated"})
	})

	group.GET("/export/stats", func(c *gin.Context) {
		stats, err := a.db.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		a.logger.Info("Admin stats exported", zap.String("by", a.hash(c.ClientIP())))
		c.JSON(http.StatusOK, stats)
	})
}
