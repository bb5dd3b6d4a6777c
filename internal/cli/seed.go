package cli

import (
	"context"
	"errors"

	"church-quiz-service/internal/app"
	"church-quiz-service/internal/config"
	"church-quiz-service/internal/domain"
	"church-quiz-service/internal/platform/logger"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads a sample quiz into the configured database.
func NewSeedCmd(configPath *string) *cobra.Command {
	var activate bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a sample quiz",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, activate)
		},
	}
	cmd.Flags().BoolVar(&activate, "activate", false, "activate the sample quiz after creating it")
	return cmd
}

func runSeed(ctx context.Context, configPath string, activate bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL == "" {
		return errors.New("seed needs postgres.url (or POSTGRES_URL)")
	}
	if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	svc, cleanup, err := buildServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	quiz, err := svc.admin.CreateQuiz(ctx, "Bible Basics")
	if err != nil {
		return err
	}
	for _, q := range sampleQuestions() {
		if _, err := svc.admin.AddQuestion(ctx, quiz.ID, q); err != nil {
			return err
		}
	}
	if activate {
		if _, err := svc.admin.Activate(ctx, quiz.ID); err != nil {
			return err
		}
	}
	log.Info("sample quiz created", "quiz_id", quiz.ID, "active", activate)
	return nil
}

func sampleQuestions() []app.QuestionInput {
	opts := func(a, b, c, d, e string) []domain.Option {
		return []domain.Option{
			{Label: domain.OptionA, Text: a},
			{Label: domain.OptionB, Text: b},
			{Label: domain.OptionC, Text: c},
			{Label: domain.OptionD, Text: d},
			{Label: domain.OptionE, Text: e},
		}
	}
	return []app.QuestionInput{
		{
			Prompt:           "Which is the first book of the Bible?",
			Options:          opts("Exodus", "Genesis", "Psalms", "Matthew", "Revelation"),
			Correct:          domain.OptionB,
			TimeLimitSeconds: 20,
			Justification:    "Genesis opens both the Torah and the whole canon.",
		},
		{
			Prompt:           "How many disciples did Jesus call?",
			Options:          opts("7", "10", "12", "40", "70"),
			Correct:          domain.OptionC,
			TimeLimitSeconds: 15,
			Justification:    "Mark 3:14 names the twelve.",
		},
		{
			Prompt:           "Who built the ark?",
			Options:          opts("Moses", "Abraham", "David", "Noah", "Elijah"),
			Correct:          domain.OptionD,
			TimeLimitSeconds: 15,
			Justification:    "Genesis 6:14.",
		},
		{
			Prompt:           "In which town was Jesus born?",
			Options:          opts("Nazareth", "Jerusalem", "Capernaum", "Jericho", "Bethlehem"),
			Correct:          domain.OptionE,
			TimeLimitSeconds: 20,
			Justification:    "Luke 2:4-7.",
		},
		{
			Prompt:           "Who was swallowed by a great fish?",
			Options:          opts("Jonah", "Peter", "Daniel", "Samuel", "Job"),
			Correct:          domain.OptionA,
			TimeLimitSeconds: 15,
			Justification:    "Jonah 1:17.",
		},
	}
}
