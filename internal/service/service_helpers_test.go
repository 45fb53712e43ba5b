package service

import (
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/forumly-api/internal/database"
	"github.com/noah-isme/forumly-api/internal/models"
	"github.com/noah-isme/forumly-api/internal/utils"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{Email: username + "@example.com", Username: username, PasswordHash: "hash", PasswordSet: true, DisplayName: username}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedCommunity(t *testing.T, db *gorm.DB, name string, creator models.User) models.Community {
	t.Helper()
	community := models.Community{Name: name, Description: name + " discussions", CreatorID: creator.ID, MemberCount: 1}
	require.NoError(t, db.Create(&community).Error)
	return community
}

func seedPost(t *testing.T, db *gorm.DB, author models.User, community, title string) models.Post {
	t.Helper()
	post := models.Post{Title: title, Content: "about " + title, CommunityName: community, AuthorID: author.ID}
	require.NoError(t, db.Omit("Author", "Comments", "Votes").Create(&post).Error)
	return post
}

func newValidator() *validator.Validate {
	return utils.NewValidator()
}
