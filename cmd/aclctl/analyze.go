package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/okian/aclguard/internal/domain/activation"
	"github.com/okian/aclguard/internal/domain/assessment"
	"github.com/okian/aclguard/internal/domain/model"
	"github.com/okian/aclguard/internal/domain/session"
	"github.com/okian/aclguard/internal/domain/validate"
	"github.com/okian/aclguard/pkg/logger"
)

var errNoSamples = errors.New("no valid samples")

var (
	fileFlag = &cli.StringFlag{
		Name:     "file",
		Aliases:  []string{"f"},
		Usage:    "YAML file with samples, - for stdin",
		Required: true,
	}
	athleteFlag = &cli.StringFlag{
		Name:  "athlete",
		Usage: "Athlete id reported in the output",
		Value: "offline",
	}
	sexFlag = &cli.StringFlag{
		Name:  "sex",
		Usage: "Athlete sex [female, male, other]",
	}
	ageFlag = &cli.IntFlag{
		Name:  "age",
		Usage: "Athlete age in years",
	}
	bmiFlag = &cli.FloatFlag{
		Name:  "bmi",
		Usage: "Athlete body mass index",
	}
	ruralFlag = &cli.BoolFlag{
		Name:  "rural",
		Usage: "Athlete trains in a rural setting",
	}
	historyFlag = &cli.FloatFlag{
		Name:  "history-risk",
		Usage: "Injury history risk in [0, 1] (default: placeholder)",
	}

	analyzeCmd = &cli.Command{
		Name:  "analyze",
		Usage: "Validate, score and assess a sample file offline",
		Flags: []cli.Flag{
			fileFlag, athleteFlag, sexFlag, ageFlag, bmiFlag, ruralFlag, historyFlag,
		},
		Action: cmdAnalyze,
	}
)

// sampleFile is the document form of a sample file. A bare sequence of
// samples is accepted too.
type sampleFile struct {
	Profile *model.AthleteProfile `yaml:"profile"`
	Samples []validate.RawSample  `yaml:"samples"`
}

// Analysis is the offline result of one sample file.
type Analysis struct {
	Profile            model.AthleteProfile `json:"profile" yaml:"profile"`
	Statistics         model.SessionStats   `json:"statistics" yaml:"statistics"`
	HighRiskPercentage float64              `json:"high_risk_percentage" yaml:"high_risk_percentage"`
	MuscleActivation   activation.Profile   `json:"muscle_activation" yaml:"muscle_activation"`
	Assessment         model.RiskAssessment `json:"assessment" yaml:"assessment"`
	Rejected           map[int]string       `json:"rejected,omitempty" yaml:"rejected,omitempty"`
}

func cmdAnalyze(ctx context.Context, cmd *cli.Command) error {
	in, closeIn, err := openInput(cmd.String(fileFlag.Name))
	if err != nil {
		return err
	}
	defer closeIn()

	doc, err := readSamples(in)
	if err != nil {
		return err
	}

	profile := model.AthleteProfile{AthleteID: cmd.String(athleteFlag.Name)}
	if doc.Profile != nil {
		profile = *doc.Profile
	}
	if cmd.IsSet(athleteFlag.Name) || profile.AthleteID == "" {
		profile.AthleteID = cmd.String(athleteFlag.Name)
	}
	if cmd.IsSet(sexFlag.Name) {
		profile.Sex = model.Sex(cmd.String(sexFlag.Name))
	}
	if cmd.IsSet(ageFlag.Name) {
		profile.Age = int(cmd.Int(ageFlag.Name))
	}
	if cmd.IsSet(bmiFlag.Name) {
		profile.BMI = cmd.Float(bmiFlag.Name)
	}
	if cmd.IsSet(ruralFlag.Name) {
		profile.Rural = cmd.Bool(ruralFlag.Name)
	}

	var history *float64
	if cmd.IsSet(historyFlag.Name) {
		h := cmd.Float(historyFlag.Name)
		history = &h
	}

	res, err := analyze(profile, doc.Samples, history)
	if err != nil {
		return err
	}
	logger.Get().Debug(ctx, "analysis complete",
		logger.Int("accepted", res.Statistics.TotalMovements),
		logger.Int("rejected", len(res.Rejected)))

	return printOutput(cmd.Root().Writer, cmd.String(formatFlag.Name), res)
}

// analyze runs the whole core over raws. Invalid samples are reported and
// skipped; it fails only when none is valid.
func analyze(profile model.AthleteProfile, raws []validate.RawSample, history *float64) (Analysis, error) {
	samples, errs := validate.Samples(raws)
	if len(samples) == 0 {
		return Analysis{}, fmt.Errorf("%w in %d samples", errNoSamples, len(raws))
	}
	// Files are not required to be ordered.
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})

	sum := session.Summarize(samples)
	stats := sum.Stats("")
	res := Analysis{
		Profile:            profile,
		Statistics:         stats,
		HighRiskPercentage: stats.HighRiskPercentage(),
		MuscleActivation:   activation.Estimate(samples),
		Assessment: assessment.New().Assess(assessment.Input{
			Profile:     profile,
			Samples:     samples,
			HistoryRisk: history,
		}),
	}
	if len(errs) > 0 {
		res.Rejected = make(map[int]string, len(errs))
		for i, err := range errs {
			res.Rejected[i] = err.Error()
		}
	}
	return res, nil
}

func readSamples(r io.Reader) (sampleFile, error) {
	var node yaml.Node
	if err := yaml.NewDecoder(r).Decode(&node); err != nil {
		if errors.Is(err, io.EOF) {
			return sampleFile{}, errNoSamples
		}
		return sampleFile{}, fmt.Errorf("parsing samples: %w", err)
	}

	var doc sampleFile
	root := &node
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&doc.Samples); err != nil {
			return sampleFile{}, fmt.Errorf("decoding samples: %w", err)
		}
	case yaml.MappingNode:
		if err := root.Decode(&doc); err != nil {
			return sampleFile{}, fmt.Errorf("decoding samples: %w", err)
		}
	default:
		return sampleFile{}, fmt.Errorf("parsing samples: expected a list or a mapping")
	}
	return doc, nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}
