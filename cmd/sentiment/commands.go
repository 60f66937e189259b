package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"github.com/djeday123/goml-sentiment/pkg/pipeline"
	"github.com/djeday123/goml-sentiment/pkg/store"
	"github.com/djeday123/goml-sentiment/train"
)

func runTrain(ctx context.Context, env *environment, _ []string) error {
	in, err := pipeline.LoadInputs(ctx, env.cfg)
	if err != nil {
		return err
	}
	res, err := pipeline.Train(ctx, env.cfg, in, env.log)
	if err != nil {
		return err
	}

	printHistory(res.History)
	fmt.Printf("\nTest:   loss %.4f  accuracy %.4f\n", res.Test.Loss, res.Test.Accuracy)
	fmt.Printf("Export: loss %.4f  accuracy %.4f\n\n", res.ExportTest.Loss, res.ExportTest.Accuracy)
	for i, text := range pipeline.SampleReviews {
		printPrediction(text, res.Samples[i], res.ClassNames)
	}

	if noSave, _ := env.flags.GetBool("no-save"); noSave {
		return nil
	}
	s, err := openStore(env)
	if err != nil {
		return err
	}
	defer s.Close()
	id, err := s.SaveRun(res.StoreRun())
	if err != nil {
		return err
	}
	fmt.Printf("\nSaved run %s\n", color.New(color.FgCyan).Render(id.String()))
	return nil
}

func runPredict(ctx context.Context, env *environment, args []string) error {
	run, err := loadRun(env)
	if err != nil {
		return err
	}
	p, err := pipeline.Restore(run)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		return predictAndPrint(ctx, p, args, run.ClassNames)
	}

	// Interactive loop
	fmt.Println("Type a review per line, 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}
		if err := predictAndPrint(ctx, p, []string{input}, run.ClassNames); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func predictAndPrint(ctx context.Context, p *pipeline.Pipeline, texts, classNames []string) error {
	probs, err := p.Predict(ctx, texts)
	if err != nil {
		return err
	}
	for i, text := range texts {
		printPrediction(text, probs[i], classNames)
	}
	return nil
}

func runVocab(_ context.Context, env *environment, args []string) error {
	run, err := loadRun(env)
	if err != nil {
		return err
	}
	p, err := pipeline.Restore(run)
	if err != nil {
		return err
	}
	vocab := p.Vectorizer().Vocabulary()

	if path, _ := env.flags.GetString("export"); path != "" {
		if err := vocab.Save(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %d tokens to %s\n", vocab.Size(), path)
	}
	if len(args) == 0 {
		fmt.Printf("Vocabulary size: %d\n", vocab.Size())
		n := min(vocab.Size(), 20)
		for id := range n {
			fmt.Printf("%6d : %q\n", id, vocab.Token(int64(id)))
		}
		return nil
	}
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("bad id %q: %w", arg, err)
		}
		if id < 0 || id >= int64(vocab.Size()) {
			return fmt.Errorf("id %d out of range [0, %d)", id, vocab.Size())
		}
		fmt.Printf("%6d : %q\n", id, vocab.Token(id))
	}
	return nil
}

func runList(_ context.Context, env *environment, _ []string) error {
	s, err := openStore(env)
	if err != nil {
		return err
	}
	defer s.Close()
	runs, err := s.List()
	if err != nil {
		return err
	}

	table := newTable([]string{"Run", "Created", "Epochs", "Test Accuracy"})
	for _, r := range runs {
		table.Append([]string{
			r.ID.String(),
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			strconv.Itoa(r.Epochs),
			fmt.Sprintf("%.4f", r.TestAccuracy),
		})
	}
	table.Render()
	return nil
}

func loadRun(env *environment) (*store.Run, error) {
	s, err := openStore(env)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	raw, _ := env.flags.GetString("run")
	if raw == "" {
		return s.Latest()
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("bad run id %q: %w", raw, err)
	}
	return s.LoadRun(id)
}

func printHistory(h *train.History) {
	table := newTable([]string{"Epoch", "Loss", "Accuracy", "Val Loss", "Val Accuracy", "LR", "Time"})
	for _, e := range h.Epochs {
		valLoss, valAcc := "-", "-"
		if e.Validation != nil {
			valLoss = fmt.Sprintf("%.4f", e.Validation.Loss)
			valAcc = fmt.Sprintf("%.4f", e.Validation.Accuracy)
		}
		table.Append([]string{
			strconv.Itoa(e.Epoch),
			fmt.Sprintf("%.4f", e.Train.Loss),
			fmt.Sprintf("%.4f", e.Train.Accuracy),
			valLoss,
			valAcc,
			fmt.Sprintf("%.1e", e.LearningRate),
			e.Duration.Round(time.Millisecond).String(),
		})
	}
	table.Render()
}

func printPrediction(text string, prob float64, classNames []string) {
	if len(classNames) != 2 {
		classNames = []string{"neg", "pos"}
	}
	label, style := classNames[0], color.New(color.FgRed)
	if prob > 0.5 {
		label, style = classNames[1], color.New(color.FgGreen)
	}
	fmt.Printf("%s %.4f  %q\n", style.Render(fmt.Sprintf("%-4s", label)), prob, text)
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	return table
}
