package user

import (
	"log"
	"net/http"
	"time"

	"decora_back_end/internal/database"
	"decora_back_end/internal/models"
	"decora_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// Register crée un compte local. L'unicité d'email passe par la table
// users_by_email, interrogée avant l'insert.
func Register(c *gin.Context) {
	var input struct {
		Name     string `json:"name"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existingID string
	if err := database.GetPreparedGetUserByEmail().Bind(input.Email).WithContext(c.Request.Context()).Scan(&existingID); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Un compte avec cet email existe déjà"})
		return
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création compte"})
		return
	}

	user := models.User{
		ID:       gocql.TimeUUID().String(),
		Name:     input.Name,
		Email:    input.Email,
		Password: hashed,
		Role:     "customer",
		Provider: "local",
	}

	now := time.Now()
	if err := database.GetPreparedInsertUser().
		Bind(user.ID, user.Email, user.Password, user.Name, user.Role, user.Provider, "", now, now).
		WithContext(c.Request.Context()).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création utilisateur"})
		return
	}
	if err := database.GetPreparedInsertUserByEmail().
		Bind(user.Email, user.ID).WithContext(c.Request.Context()).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création utilisateur"})
		return
	}

	go func() {
		if err := utils.SendWelcomeEmail(user.Email, user.Name); err != nil {
			log.Println("❌ Erreur envoi email de bienvenue:", err)
		}
	}()

	token, err := utils.GenerateJWT(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération token"})
		return
	}

	log.Printf("🆕 Compte créé : %s", user.Email)
	c.JSON(http.StatusCreated, gin.H{
		"token":  token,
		"userId": user.ID,
		"email":  user.Email,
		"name":   user.Name,
		"role":   user.Role,
	})
}

// Login authentifie un compte local.
func Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var userID string
	if err := database.GetPreparedGetUserByEmail().Bind(input.Email).WithContext(c.Request.Context()).Scan(&userID); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
		return
	}

	user := models.User{ID: userID}
	if err := database.GetPreparedGetUserByID().Bind(userID).WithContext(c.Request.Context()).
		Scan(&user.Email, &user.Password, &user.Name, &user.Role, &user.Provider, &user.ProviderID); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
		return
	}

	ok, err := utils.VerifyPassword(input.Password, user.Password)
	if err != nil || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
		return
	}

	token, err := utils.GenerateJWT(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"userId": user.ID,
		"email":  user.Email,
		"name":   user.Name,
		"role":   user.Role,
	})
}

// Me rend le profil de l'utilisateur authentifié.
func Me(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	user := models.User{ID: userID}
	if err := database.GetPreparedGetUserByID().Bind(userID).WithContext(c.Request.Context()).
		Scan(&user.Email, &user.Password, &user.Name, &user.Role, &user.Provider, &user.ProviderID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur introuvable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":   user.ID,
		"name":     user.Name,
		"email":    user.Email,
		"role":     user.Role,
		"provider": user.Provider,
	})
}

// FindOrCreateOAuthUser rattache un login social à un compte : par
// provider_id d'abord, par email ensuite, création sinon.
func FindOrCreateOAuthUser(c *gin.Context, provider, providerID, email, name string) (models.User, error) {
	ctx := c.Request.Context()

	var userID string
	err := database.GetPreparedGetUserByEmail().Bind(email).WithContext(ctx).Scan(&userID)
	if err == nil {
		user := models.User{ID: userID}
		if err := database.GetPreparedGetUserByID().Bind(userID).WithContext(ctx).
			Scan(&user.Email, &user.Password, &user.Name, &user.Role, &user.Provider, &user.ProviderID); err != nil {
			return models.User{}, err
		}
		if user.Provider != provider || user.ProviderID != providerID {
			session, err := database.GetUsersSession()
			if err != nil {
				return models.User{}, err
			}
			if err := session.Query(`UPDATE users SET provider = ?, provider_id = ?, updated_at = ? WHERE user_id = ?`,
				provider, providerID, time.Now(), userID).WithContext(ctx).Exec(); err != nil {
				return models.User{}, err
			}
			user.Provider = provider
			user.ProviderID = providerID
			log.Printf("🔄 Compte existant fusionné avec provider %s : %s", provider, email)
		}
		return user, nil
	}

	user := models.User{
		ID:         gocql.TimeUUID().String(),
		Email:      email,
		Name:       name,
		Role:       "customer",
		Provider:   provider,
		ProviderID: providerID,
	}
	now := time.Now()
	if err := database.GetPreparedInsertUser().
		Bind(user.ID, user.Email, "", user.Name, user.Role, user.Provider, user.ProviderID, now, now).
		WithContext(ctx).Exec(); err != nil {
		return models.User{}, err
	}
	if err := database.GetPreparedInsertUserByEmail().
		Bind(user.Email, user.ID).WithContext(ctx).Exec(); err != nil {
		return models.User{}, err
	}

	log.Printf("🆕 Utilisateur OAuth créé (%s) : %s", provider, email)
	return user, nil
}
