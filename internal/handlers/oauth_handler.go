package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"decora_back_end/internal/database"
	userhandlers "decora_back_end/internal/handlers/user"
	"decora_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"
)

// BeginAuth lance le flow OAuth web. L'URL de retour du front est
// gardée dans Redis, indexée par le state, le temps du flow.
func BeginAuth(c *gin.Context) {
	provider := c.Param("provider")
	if provider == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "aucun provider spécifié"})
		return
	}

	// gothic relit le provider depuis la query (cf. GetProviderName
	// dans main) : on l'y injecte depuis le paramètre de route
	q := c.Request.URL.Query()
	q.Set("provider", provider)

	if redirectURL := c.Query("redirect_url"); redirectURL != "" {
		state := generateRandomState()
		_ = database.RedisClient.Set(c.Request.Context(), "oauth_redirect:"+state, redirectURL, 10*time.Minute).Err()
		q.Set("state", state)
	}
	c.Request.URL.RawQuery = q.Encode()

	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// CallbackAuth termine le flow OAuth, rattache ou crée le compte local
// et redirige vers le front avec un JWT.
func CallbackAuth(c *gin.Context) {
	provider := c.Param("provider")
	if provider == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "aucun provider spécifié"})
		return
	}

	q := c.Request.URL.Query()
	q.Set("provider", provider)
	c.Request.URL.RawQuery = q.Encode()

	gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := userhandlers.FindOrCreateOAuthUser(c, provider, gothUser.UserID, gothUser.Email, gothUser.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création compte"})
		return
	}

	token, err := utils.GenerateJWT(account)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération token"})
		return
	}

	redirectToFrontend(c, token)
}

// GoogleMobileLogin échange le code d'autorisation envoyé par l'app
// mobile contre un token Google, puis délivre notre JWT.
func GoogleMobileLogin(c *gin.Context) {
	var body struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code manquant"})
		return
	}

	provider, ok := Providers["google"]
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Provider non configuré"})
		return
	}

	token, err := provider.Exchange(c.Request.Context(), body.Code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Code Google invalide"})
		return
	}

	client := provider.Config.Client(c.Request.Context(), token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur vérification Google"})
		return
	}
	defer resp.Body.Close()

	var gu struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil || gu.Email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Profil Google invalide"})
		return
	}

	account, err := userhandlers.FindOrCreateOAuthUser(c, "google", gu.ID, gu.Email, gu.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création compte"})
		return
	}

	jwtToken, err := utils.GenerateJWT(account)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": jwtToken, "email": account.Email, "name": account.Name})
}

func redirectToFrontend(c *gin.Context, token string) {
	state := c.Query("state")
	redirectURI, _ := database.RedisClient.Get(c.Request.Context(), "oauth_redirect:"+state).Result()
	_ = database.RedisClient.Del(c.Request.Context(), "oauth_redirect:"+state).Err()

	if redirectURI == "" {
		redirectURI = os.Getenv("FRONTEND_URL")
		if redirectURI == "" {
			redirectURI = "http://localhost:5173"
		}
	}

	allowed := strings.Split(os.Getenv("OAUTH_ALLOWED_REDIRECTS"), ",")
	allowed = append(allowed, "http://localhost:5173", "http://localhost:3000")
	valid := false
	for _, o := range allowed {
		if o != "" && strings.HasPrefix(redirectURI, o) {
			valid = true
			break
		}
	}
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Redirect url non autorisé"})
		return
	}

	sep := "?"
	if strings.Contains(redirectURI, "?") {
		sep = "&"
	}
	final := redirectURI + sep + "token=" + url.QueryEscape(token)
	log.Printf("✅ Redirection OAuth vers %s", redirectURI)
	c.Redirect(http.StatusTemporaryRedirect, final)
}

func generateRandomState() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
