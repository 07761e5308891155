// Package seed provides helpers to create demo boards for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"projectboard/internal/models"
	"projectboard/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

// Factory builds board entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	rnd  *rand.Rand
	fake *gofakeit.Faker
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// #nosec G404: acceptable for seeding
	return &Factory{
		db:     db,
		opts:   opts,
		rnd:    rand.New(rand.NewSource(seed)),
		fake:   gofakeit.New(seed),
		nextID: 1000,
	}
}

func (f *Factory) persist(kind string, v any, id *uint) error {
	if f.opts.DryRun {
		f.nextID++
		*id = f.nextID
		log.Printf("[dry-run] %s: %+v", kind, v)
		return nil
	}
	return f.db.Create(v).Error
}

// recentTime returns a timestamp spread over the last MaxDays days.
func (f *Factory) recentTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rnd.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rnd.Intn(24))*time.Hour +
		time.Duration(f.rnd.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

// CreateUser constructs and persists a sample user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	person := f.fake.Person()
	user := &models.User{
		Name:  person.FirstName + " " + person.LastName,
		Email: fmt.Sprintf("%s.%d@example.com", f.fake.Username(), f.fake.Number(100, 999)),
	}

	if f.opts.SkipBcrypt {
		user.Password = DefaultPassword
	} else {
		hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hashed)
	}

	for _, override := range overrides {
		override(user)
	}
	if err := f.persist("CreateUser", user, &user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateBoard persists a board with admin as its first administrator.
func (f *Factory) CreateBoard(admin *models.User, overrides ...func(*models.Board)) (*models.Board, error) {
	color := f.fake.HexColor()
	board := &models.Board{
		Name:            f.fake.AppName(),
		BackgroundColor: &color,
	}
	for _, override := range overrides {
		override(board)
	}
	if err := f.persist("CreateBoard", board, &board.ID); err != nil {
		return nil, err
	}
	if err := f.AddMember(board, admin, models.BoardRoleAdmin); err != nil {
		return nil, err
	}
	return board, nil
}

// AddMember grants user a role on board.
func (f *Factory) AddMember(board *models.Board, user *models.User, role models.BoardRole) error {
	if f.opts.DryRun {
		return nil
	}
	return f.db.Create(&models.BoardMember{BoardID: board.ID, UserID: user.ID, Role: role}).Error
}

// CreateColumn persists a named column at order.
func (f *Factory) CreateColumn(board *models.Board, name string, order int) (*models.Column, error) {
	column := &models.Column{
		BoardID: board.ID,
		Name:    name,
		Slug:    validation.Slugify(name),
		Order:   order,
	}
	if err := f.persist("CreateColumn", column, &column.ID); err != nil {
		return nil, err
	}
	return column, nil
}

// BuildCard constructs a card like CreateCard but does not persist it.
func (f *Factory) BuildCard(column *models.Column, creator *models.User, order int) *models.Card {
	description := f.fake.Paragraph(1, 2, 12, "\n")
	card := &models.Card{
		ColumnID:    column.ID,
		Title:       f.fake.Sentence(f.rnd.Intn(5) + 2),
		Description: &description,
		Order:       order,
		CreatedBy:   &creator.ID,
	}
	card.CreatedAt = f.recentTime()

	if f.rnd.Float32() < 0.4 {
		due := card.CreatedAt.AddDate(0, 0, f.rnd.Intn(30)+1)
		card.DueDate = &due
	}
	if f.rnd.Float32() < 0.5 {
		hours := float64(f.rnd.Intn(16) + 1)
		cost := hours * 75
		card.EstimatedHours, card.EstimatedCost = &hours, &cost
	}
	return card
}

// CreateCard persists a generated card and its creation activity.
func (f *Factory) CreateCard(column *models.Column, creator *models.User, order int, overrides ...func(*models.Card)) (*models.Card, error) {
	card := f.BuildCard(column, creator, order)
	for _, override := range overrides {
		override(card)
	}
	if err := f.persist("CreateCard", card, &card.ID); err != nil {
		return nil, err
	}
	if f.opts.DryRun {
		return card, nil
	}
	activity := &models.Activity{
		CardID:    card.ID,
		UserID:    &creator.ID,
		Type:      models.ActivityCreated,
		Text:      "created this card",
		CreatedAt: card.CreatedAt,
	}
	if err := f.db.Create(activity).Error; err != nil {
		return nil, err
	}
	return card, nil
}

// AttachLabels links labels to card.
func (f *Factory) AttachLabels(card *models.Card, labels []models.Label) error {
	if f.opts.DryRun || len(labels) == 0 {
		return nil
	}
	return f.db.Model(card).Association("Labels").Append(labels)
}

// Assign links users to card.
func (f *Factory) Assign(card *models.Card, users ...models.User) error {
	if f.opts.DryRun || len(users) == 0 {
		return nil
	}
	return f.db.Model(card).Association("Assignees").Append(users)
}

// CreateChecklist persists a checklist with n items, some already completed.
func (f *Factory) CreateChecklist(card *models.Card, n int) (*models.Checklist, error) {
	checklist := &models.Checklist{CardID: card.ID, Name: f.fake.BuzzWord() + " checklist"}
	for i := 0; i < n; i++ {
		checklist.Items = append(checklist.Items, models.ChecklistItem{
			Content:     f.fake.HackerPhrase(),
			IsCompleted: f.rnd.Float32() < 0.3,
			Position:    i + 1,
		})
	}
	if err := f.persist("CreateChecklist", checklist, &checklist.ID); err != nil {
		return nil, err
	}
	return checklist, nil
}

// CreateComment persists a comment by user on card.
func (f *Factory) CreateComment(card *models.Card, user *models.User, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		CommentableType: models.CommentableCard,
		CommentableID:   card.ID,
		Content:         f.fake.Sentence(10),
		UserID:          user.ID,
	}
	for _, override := range overrides {
		override(comment)
	}
	if err := f.persist("CreateComment", comment, &comment.ID); err != nil {
		return nil, err
	}
	return comment, nil
}
