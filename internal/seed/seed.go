package seed

import (
	"fmt"
	"log"
	"strings"

	"projectboard/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers       int
	NumBoards      int
	CardsPerColumn int
	MaxDays        int
	RandomSeed     int64
	ShouldClean    bool
	DryRun         bool
	SkipBcrypt     bool
}

// DefaultColumns are the columns of every seeded board, in order.
var DefaultColumns = []string{"Backlog", "To Do", "In Progress", "Review", "Done"}

// Result counts what Seed created.
type Result struct {
	Users   int
	Boards  int
	Columns int
	Cards   int
}

// boardTables are cleared children first.
var boardTables = []string{
	"comment_reactions", "comments", "activities", "checklist_items", "checklists",
	"attachments", "card_appearances", "card_labels", "card_users", "cards",
	"board_columns", "board_members", "user_api_tokens", "boards", "labels", "users",
}

// Seed populates the database with demo boards.
func Seed(db *gorm.DB, opts Options) (*Result, error) {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 5
	}
	if opts.NumBoards <= 0 {
		opts.NumBoards = 2
	}
	if opts.CardsPerColumn <= 0 {
		opts.CardsPerColumn = 4
	}
	log.Printf("Seeding %d users and %d boards...", opts.NumUsers, opts.NumBoards)

	if opts.ShouldClean && !opts.DryRun {
		if err := clearData(db); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}

	var labels []models.Label
	if !opts.DryRun {
		var err error
		if labels, err = Labels(db); err != nil {
			return nil, err
		}
	}

	f := NewFactory(db, opts)
	res := &Result{}

	users := make([]models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, *u)
	}
	res.Users = len(users)

	for b := 0; b < opts.NumBoards; b++ {
		owner := &users[b%len(users)]
		board, err := f.CreateBoard(owner)
		if err != nil {
			return nil, fmt.Errorf("create board: %w", err)
		}
		res.Boards++

		for i, u := range users {
			if u.ID == owner.ID {
				continue
			}
			role := models.BoardRoleMember
			if i%3 == 2 {
				role = models.BoardRoleViewer
			}
			if err := f.AddMember(board, &users[i], role); err != nil {
				return nil, fmt.Errorf("add member: %w", err)
			}
		}

		for order, name := range DefaultColumns {
			column, err := f.CreateColumn(board, name, order)
			if err != nil {
				return nil, fmt.Errorf("create column: %w", err)
			}
			res.Columns++
			if err := seedColumn(f, column, users, labels, opts.CardsPerColumn); err != nil {
				return nil, err
			}
			res.Cards += opts.CardsPerColumn
		}
	}

	log.Printf("Seeding completed: %d users, %d boards, %d columns, %d cards",
		res.Users, res.Boards, res.Columns, res.Cards)
	return res, nil
}

func seedColumn(f *Factory, column *models.Column, users []models.User, labels []models.Label, n int) error {
	for order := 0; order < n; order++ {
		creator := &users[f.rnd.Intn(len(users))]
		card, err := f.CreateCard(column, creator, order)
		if err != nil {
			return fmt.Errorf("create card: %w", err)
		}
		if len(labels) > 0 && f.rnd.Float32() < 0.6 {
			if err := f.AttachLabels(card, []models.Label{labels[f.rnd.Intn(len(labels))]}); err != nil {
				return fmt.Errorf("label card: %w", err)
			}
		}
		if f.rnd.Float32() < 0.5 {
			if err := f.Assign(card, users[f.rnd.Intn(len(users))]); err != nil {
				return fmt.Errorf("assign card: %w", err)
			}
		}
		if f.rnd.Float32() < 0.3 {
			if _, err := f.CreateChecklist(card, f.rnd.Intn(4)+1); err != nil {
				return fmt.Errorf("create checklist: %w", err)
			}
		}
		for c := f.rnd.Intn(3); c > 0; c-- {
			if _, err := f.CreateComment(card, &users[f.rnd.Intn(len(users))]); err != nil {
				return fmt.Errorf("create comment: %w", err)
			}
		}
	}
	return nil
}

func clearData(db *gorm.DB) error {
	log.Println("Clearing existing board data...")
	if db.Dialector.Name() == "postgres" {
		return db.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(boardTables, ", "))).Error
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, table := range boardTables {
			if !tx.Migrator().HasTable(table) {
				continue
			}
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
