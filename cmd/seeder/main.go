package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"backend/internal/config"
	"backend/internal/models"
	"backend/internal/rank"
	"backend/internal/repository"
	"backend/internal/service"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const (
	TotalUsers     = 5000
	BatchSize      = 500
	MaxSeedXP      = 21000
	UsernamePrefix = "learner_"
)

var seedTimezones = []string{
	"UTC",
	"America/New_York",
	"Europe/Berlin",
	"Asia/Tokyo",
	"Australia/Sydney",
}

func main() {
	log.Println("🌱 Starting seeder for the Progression Engine...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	log.Println("✓ Connected to PostgreSQL")

	repo := repository.NewPostgresRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("✓ Database migrations completed")

	ctx := context.Background()

	log.Println("📦 Seeding badge catalog...")
	if err := seedBadges(db); err != nil {
		log.Fatalf("Failed to seed badges: %v", err)
	}

	log.Println("📦 Seeding achievement catalog...")
	if err := seedAchievements(db); err != nil {
		log.Fatalf("Failed to seed achievements: %v", err)
	}

	log.Printf("🌱 Generating %d users...", TotalUsers)
	users := generateUsers(TotalUsers)

	log.Println("📦 Inserting users into PostgreSQL...")
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(users, BatchSize).Error; err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}

	log.Println("⚡ Running initial rank calculation...")
	achievementService := service.NewAchievementService(repo, nil)
	rankService := service.NewRankService(repo, achievementService, nil, nil)
	changes, err := rankService.RecalculateAll(ctx)
	if err != nil {
		log.Fatalf("Initial recalculation failed: %v", err)
	}

	log.Printf("✅ Seeding completed successfully!")
	log.Printf("   - Users ranked: %d", len(changes))

	log.Println("\n📊 Top 10 Users:")
	top, err := repo.GetLeaderboardPage(ctx, 0, 10)
	if err != nil {
		log.Fatalf("Failed to read leaderboard: %v", err)
	}
	for i, u := range top {
		tier := rank.CompetitiveRankForPosition(i+1, TotalUsers)
		log.Printf("   %d. %s - %d XP (%s)", i+1, u.Username, u.TotalXP, tier.Name)
	}
}

// generateUsers builds a demo population with a spread of XP, timezones,
// and account ages so tie-breaks and percentile bands are exercised
func generateUsers(count int) []models.User {
	users := make([]models.User, count)
	now := time.Now().UTC()

	for i := 0; i < count; i++ {
		users[i] = models.User{
			Username:  fmt.Sprintf("%s%05d", UsernamePrefix, i+1),
			TotalXP:   rand.Intn(MaxSeedXP),
			Timezone:  seedTimezones[rand.Intn(len(seedTimezones))],
			IsActive:  true,
			CreatedAt: now.Add(-time.Duration(rand.Intn(365*24)) * time.Hour),
		}
	}
	return users
}

// seedBadges inserts a small reference catalog covering every trigger type
func seedBadges(db *gorm.DB) error {
	badges := []models.Badge{
		{Name: "First Steps", Description: "Complete your first lesson", TriggerType: models.BadgeLessonComplete, TriggerValue: "lesson-intro-1", Rarity: "common", XPValue: 10},
		{Name: "Syntax Savvy", Description: "Complete the syntax basics lesson", TriggerType: models.BadgeLessonComplete, TriggerValue: "lesson-syntax-1", Rarity: "common", XPValue: 10},
		{Name: "Module Master: Basics", Description: "Finish the basics module", TriggerType: models.BadgeModuleComplete, TriggerValue: "module-basics", Rarity: "uncommon", XPValue: 50},
		{Name: "Quiz Whiz", Description: "Earn silver or better on the basics quiz", TriggerType: models.BadgeQuizMastery, TriggerValue: "quiz-basics", RequiredTier: models.MasterySilver, Rarity: "uncommon", XPValue: 25},
		{Name: "Flawless", Description: "Earn a perfect score on the final quiz", TriggerType: models.BadgeQuizMastery, TriggerValue: "quiz-final", RequiredTier: models.MasteryPerfect, Rarity: "rare", XPValue: 100},
		{Name: "Chapter Champion", Description: "Master every quiz in chapter one", TriggerType: models.BadgeParentQuizMastery, TriggerValue: "chapter-1", RequiredTier: models.MasteryGold, Rarity: "rare", XPValue: 75},
		{Name: "Founding Learner", Description: "Awarded by the team", TriggerType: models.BadgeManual, TriggerValue: "founding", Rarity: "legendary", XPValue: 0},
	}
	for i := range badges {
		badges[i].IsActive = true
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&badges).Error
}

// seedAchievements inserts the achievement catalog: one rank achievement
// per notable tier, badge milestones, streak and XP milestones
func seedAchievements(db *gorm.DB) error {
	achievements := []models.Achievement{
		{Name: "Climbing the Ladder", Description: "Reach the Scholar rank", Type: models.AchievementRank, CriteriaValue: rank.Ordinal("Scholar"), Category: "rank", SortOrder: 10, XPReward: 50},
		{Name: "Seasoned Competitor", Description: "Reach the Veteran rank", Type: models.AchievementRank, CriteriaValue: rank.Ordinal("Veteran"), Category: "rank", SortOrder: 20, XPReward: 100},
		{Name: "Upper Echelon", Description: "Reach the Master rank", Type: models.AchievementRank, CriteriaValue: rank.Ordinal("Master"), Category: "rank", SortOrder: 30, XPReward: 200},
		{Name: "Peak Performer", Description: "Reach the Transcendent rank", Type: models.AchievementRank, CriteriaValue: rank.Ordinal("Transcendent"), Category: "rank", SortOrder: 40, XPReward: 500},

		{Name: "Collector", Description: "Earn 3 lesson badges", Type: models.AchievementBadgeMilestone, CriteriaData: datatypes.JSON([]byte(`{"badgeType":"lesson_complete","targetCount":3}`)), Category: "badges", SortOrder: 50, XPReward: 75},
		{Name: "Completionist", Description: "Earn every module badge", Type: models.AchievementBadgeMilestone, CriteriaData: datatypes.JSON([]byte(`{"badgeType":"module_complete","targetCount":"all"}`)), Category: "badges", SortOrder: 60, XPReward: 150},

		{Name: "Consistent", Description: "Hold a 2-week quest streak", Type: models.AchievementStreak, CriteriaValue: 2, Category: "quests", SortOrder: 70, XPReward: 100},
		{Name: "Unstoppable", Description: "Hold an 8-week quest streak", Type: models.AchievementStreak, CriteriaValue: 8, Category: "quests", SortOrder: 80, XPReward: 400},

		{Name: "Getting Started", Description: "Earn 500 XP", Type: models.AchievementXP, CriteriaValue: 500, Category: "xp", SortOrder: 90, XPReward: 25},
		{Name: "Powered Up", Description: "Earn 5000 XP", Type: models.AchievementXP, CriteriaValue: 5000, Category: "xp", SortOrder: 100, XPReward: 100},

		{Name: "All About Me", Description: "Fill out your whole profile", Type: models.AchievementProfile, CriteriaValue: 100, Category: "profile", SortOrder: 110, XPReward: 20},
	}
	for i := range achievements {
		achievements[i].IsActive = true
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&achievements).Error
}
