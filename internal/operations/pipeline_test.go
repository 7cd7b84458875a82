package operations

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"impedancecli/internal/archive"
	"impedancecli/internal/config"
	"impedancecli/internal/dataprocessing"
	apperrors "impedancecli/internal/errors"
	"impedancecli/internal/exporter"
	"impedancecli/internal/files"
	"impedancecli/internal/notify"
	"impedancecli/internal/plot"
	"impedancecli/internal/shared/testutil"
	"impedancecli/internal/validation"
	"impedancecli/pkg/contracts/domain"
)

var wednesday = time.Date(2024, 3, 13, 9, 30, 0, 0, time.UTC)

type recordingSender struct {
	sent []*mail.Msg
	err  error
}

func (s *recordingSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, messages...)
	return nil
}

type fixture struct {
	paths   config.PathsConfig
	sender  *recordingSender
	capture *testutil.LogCapture
	deps    Dependencies
	logger  *slog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	paths := config.PathsConfig{
		InputDir:  filepath.Join(root, "input"),
		OutputDir: filepath.Join(root, "out"),
		Extension: ".txt",
	}
	require.NoError(t, os.MkdirAll(paths.InputDir, 0o755))

	logger, capture := testutil.NewTestLogger(t)
	sender := &recordingSender{}

	mailCfg := config.Default().Mail
	mailCfg.Recipient = "pi@example.com"
	factory := func(config.MailConfig, domain.MailCredentials) (notify.Sender, error) { return sender, nil }

	return &fixture{
		paths:   paths,
		sender:  sender,
		capture: capture,
		logger:  logger,
		deps: Dependencies{
			Finder:   files.NewDiscovery(""),
			Checker:  validation.NewFileValidator(logger),
			Parser:   dataprocessing.NewDefaultParser(logger),
			Analyzer: dataprocessing.NewAnalyzer(config.DefaultThresholdMOhm, logger),
			Renderer: plot.NewRenderer(plot.Options{}),
			Exporter: exporter.NewSummaryExporter(logger),
			Archiver: archive.NewArchiver(files.NewManager(logger), logger),
			Notifier: notify.NewNotifier(mailCfg, notify.StaticCredentials{Username: "lab@example.com", Password: "pw"}, factory, logger),
		},
	}
}

func (f *fixture) pipeline() *Pipeline {
	return NewPipeline(f.deps, f.paths, NewManager(nil, nil, f.logger), func() time.Time { return wednesday }, f.logger)
}

func (f *fixture) week(t *testing.T) *config.WeekLayout {
	t.Helper()
	week, err := config.NewWeekLayout(f.paths.OutputDir, wednesday)
	require.NoError(t, err)
	return week
}

func TestPipelineWeeklyRun(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"array A.txt", "array B.txt"} {
		testutil.WriteMeasurementFile(t, f.paths.InputDir, name, []float64{1, 2, 3, 4, 10})
	}

	report, err := f.pipeline().Run(context.Background())
	require.NoError(t, err)
	week := f.week(t)

	assert.Equal(t, OperationStatusCompleted, report.Status)
	assert.Equal(t, "2024-03-11 to 2024-03-15", report.Week)
	assert.False(t, report.Empty)
	assert.Equal(t, 2, report.Files)

	require.Len(t, report.Summaries, 2)
	for _, s := range report.Summaries {
		assert.InDelta(t, 4.0, s.Mean, 1e-9)
		require.True(t, s.Filtered.Valid)
		assert.InDelta(t, 2.5, s.Filtered.Mean, 1e-9)
		assert.Equal(t, 4, s.Filtered.Count)
	}

	assert.Equal(t, []string{
		filepath.Join(week.FiguresDir, "array A - fig 0.png"),
		filepath.Join(week.FiguresDir, "array B - fig 1.png"),
	}, report.Figures)
	for _, fig := range report.Figures {
		assert.FileExists(t, fig)
	}

	for _, name := range []string{"array A.txt", "array B.txt"} {
		assert.FileExists(t, week.RawPath(name))
		assert.NoFileExists(t, filepath.Join(f.paths.InputDir, name))
	}
	left, err := os.ReadDir(f.paths.InputDir)
	require.NoError(t, err)
	assert.Empty(t, left)

	zips, err := filepath.Glob(filepath.Join(week.OutputRoot, "*.zip"))
	require.NoError(t, err)
	assert.Equal(t, []string{week.ArchivePath}, zips)
	members, err := archive.ReadMembers(week.ArchivePath)
	require.NoError(t, err)
	assert.Contains(t, members, week.Name+"/figures/array A - fig 0.png")
	assert.Contains(t, members, week.Name+"/figures/array B - fig 1.png")
	assert.Contains(t, members, week.Name+"/textFileData/array A.txt")
	assert.Contains(t, members, week.Name+"/textFileData/array B.txt")

	require.Len(t, f.sender.sent, 1)
	msg := f.sender.sent[0]
	assert.Equal(t, []string{"Impedance values for the week of " + week.Name}, msg.GetGenHeader(mail.HeaderSubject))
	require.Len(t, msg.GetAttachments(), 1)
	assert.Equal(t, week.Name+".zip", msg.GetAttachments()[0].Name)
	assert.Equal(t, NotificationWeekly, report.Notification)

	for _, id := range []string{StepIDDiscover, StepIDLoad, StepIDRender, StepIDSummarize, StepIDStage, StepIDCompress, StepIDFinalize, StepIDNotify} {
		assert.Equal(t, StepStatusCompleted, report.StatusOf(id), id)
	}
	assert.Equal(t, StepStatus(""), report.StatusOf(StepIDNotifyEmpty))
	testutil.AssertNoErrors(t, f.capture)
}

func TestPipelineEmptyWeek(t *testing.T) {
	f := newFixture(t)
	testutil.WriteFile(t, f.paths.InputDir, "notes.csv", "not a measurement")

	report, err := f.pipeline().Run(context.Background())
	require.NoError(t, err)
	week := f.week(t)

	assert.True(t, report.Empty)
	assert.Equal(t, 0, report.Files)
	assert.Equal(t, NotificationEmpty, report.Notification)
	assert.NoDirExists(t, week.Dir)
	assert.NoFileExists(t, week.ArchivePath)
	assert.FileExists(t, filepath.Join(f.paths.InputDir, "notes.csv"))

	require.Len(t, f.sender.sent, 1)
	msg := f.sender.sent[0]
	assert.Equal(t, []string{"No impedance values this week"}, msg.GetGenHeader(mail.HeaderSubject))
	assert.Empty(t, msg.GetAttachments())

	assert.Equal(t, StepStatusCompleted, report.StatusOf(StepIDNotifyEmpty))
	assert.Equal(t, StepStatus(""), report.StatusOf(StepIDLoad))
}

func TestPipelineMailDisabled(t *testing.T) {
	f := newFixture(t)
	f.deps.Notifier = nil

	report, err := f.pipeline().Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Notification)
	assert.Empty(t, f.sender.sent)
	testutil.AssertLogContains(t, f.capture, slog.LevelWarn, "mail disabled, notification not sent")
}

func TestPipelineCollisionMovesNothing(t *testing.T) {
	f := newFixture(t)
	var inputs []string
	for _, name := range []string{"array A.txt", "array B.txt"} {
		inputs = append(inputs, testutil.WriteMeasurementFile(t, f.paths.InputDir, name, []float64{1, 2, 3, 4, 10}))
	}
	week := f.week(t)
	require.NoError(t, week.EnsureDirectories())
	testutil.WriteFile(t, week.RawDir, "array B.txt", "an older, different file")

	report, err := f.pipeline().Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeCollision))
	assert.Equal(t, StepIDStage, FailedStep(err))

	assert.Equal(t, OperationStatusFailed, report.Status)
	assert.Equal(t, StepStatusFailed, report.StatusOf(StepIDStage))
	assert.Equal(t, StepStatusSkipped, report.StatusOf(StepIDCompress))
	assert.Equal(t, StepStatusSkipped, report.StatusOf(StepIDNotify))

	for _, in := range inputs {
		assert.FileExists(t, in)
	}
	assert.NoFileExists(t, week.RawPath("array A.txt"))
	assert.NoFileExists(t, week.ArchivePath)
	assert.Empty(t, f.sender.sent)
}

func TestPipelineRejectsNonFiniteImpedance(t *testing.T) {
	for _, value := range []string{"NaN", "Inf"} {
		t.Run(value, func(t *testing.T) {
			f := newFixture(t)
			good := testutil.WriteMeasurementFile(t, f.paths.InputDir, "array A.txt", []float64{1, 2, 3, 4, 10})
			bad := testutil.WriteFile(t, f.paths.InputDir, "array B.txt",
				"nanoZ impedance test\nFrequency: 1004 Hz\nChannel\tZ\tPhase\n1\t2\t-40.5\n2\t"+value+"\t-41.5\n")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			report, err := f.pipeline().Run(ctx)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing), err.Error())
			assert.Contains(t, err.Error(), "non-finite value")
			assert.Equal(t, StepIDLoad, FailedStep(err))

			assert.Equal(t, StepStatusSkipped, report.StatusOf(StepIDRender))
			assert.FileExists(t, good)
			assert.FileExists(t, bad)
			assert.NoFileExists(t, f.week(t).ArchivePath)
			assert.Empty(t, f.sender.sent)
		})
	}
}

func TestPipelineMailFailureAfterArchive(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errors.New("535 authentication failed")
	testutil.WriteMeasurementFile(t, f.paths.InputDir, "array A.txt", []float64{1, 2, 3, 4, 10})

	report, err := f.pipeline().Run(context.Background())
	require.Error(t, err)
	week := f.week(t)

	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMailTransport))
	assert.Equal(t, StepIDNotify, FailedStep(err))
	assert.Equal(t, OperationStatusFailed, report.Status)
	assert.Equal(t, week.ArchivePath, report.Archive)
	assert.FileExists(t, week.ArchivePath)
	assert.FileExists(t, week.RawPath("array A.txt"))

	rec, found := f.capture.Find("data archived but notification not delivered")
	require.True(t, found)
	assert.Equal(t, slog.LevelError, rec.Level)
}

func TestPipelineRerunSameWeek(t *testing.T) {
	f := newFixture(t)
	testutil.WriteMeasurementFile(t, f.paths.InputDir, "array A.txt", []float64{1, 2, 3, 4, 10})
	_, err := f.pipeline().Run(context.Background())
	require.NoError(t, err)

	testutil.WriteMeasurementFile(t, f.paths.InputDir, "array C.txt", []float64{7, 8})
	report, err := f.pipeline().Run(context.Background())
	require.NoError(t, err)

	week := f.week(t)
	assert.Equal(t, []string{filepath.Join(week.FiguresDir, "array C - fig 0.png")}, report.Figures)
	members, err := archive.ReadMembers(week.ArchivePath)
	require.NoError(t, err)
	assert.Contains(t, members, week.Name+"/textFileData/array A.txt")
	assert.Contains(t, members, week.Name+"/textFileData/array C.txt")
	assert.Len(t, f.sender.sent, 2)

	raw, err := os.ReadFile(filepath.Join(week.Dir, config.SummaryCSVName))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "array A.txt,array A - fig 0.png,"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "array C.txt,array C - fig 0.png,"), lines[2])
	assert.Contains(t, members, week.Name+"/"+config.SummaryCSVName)
}
