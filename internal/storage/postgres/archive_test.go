package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webextract/internal/crawler"
)

func sampleJob() crawler.Job {
	created := time.Unix(1700000000, 0).UTC()
	finished := created.Add(time.Minute)
	return crawler.Job{
		ID:         "job-1",
		Status:     crawler.JobStatusCompleted,
		Progress:   100,
		Message:    "Scraped 1 page",
		Parameters: crawler.JobParameters{URL: "https://example.com", MaxPages: 5},
		Pages: []crawler.PageResult{{
			URL:              "https://example.com",
			StatusCode:       200,
			Title:            "Example Domain",
			CleanedContent:   crawler.CleanedContent{Text: "Hello there.", WordCount: 2},
			Quality:          crawler.QualityScore{Total: 41},
			ExtractionMethod: "semantic",
			ContentHash:      "abc",
			FetchedAt:        finished,
		}},
		Result:     &crawler.JobResult{AverageQuality: 41, WordCount: 2},
		ExportURI:  "memory://exports/job-1.json",
		CreatedAt:  created,
		FinishedAt: &finished,
	}
}

func TestSaveJobWritesJobAndPages(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	archive, err := NewArchiveWithPool(mock, "", "")
	require.NoError(t, err)
	job := sampleJob()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO jobs").
		WithArgs(
			"job-1", "https://example.com", "completed", "Scraped 1 page", "", 5, "",
			1, 0, 41.0, 2, "memory://exports/job-1.json",
			job.CreatedAt, job.StartedAt, job.FinishedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM pages").
		WithArgs("job-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO pages").
		WithArgs(
			"job-1", 0, "https://example.com", "", 200, "Example Domain", "", "",
			2, 41, "semantic", false, "abc", "Hello there.",
			[]byte("[]"), pgxmock.AnyArg(), job.Pages[0].FetchedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, archive.SaveJob(context.Background(), job))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveJobRollsBackOnError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	archive, err := NewArchiveWithPool(mock, "archived_jobs", "archived_pages")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO archived_jobs").
		WithArgs(anyArgs(len(jobArgs(sampleJob())))...).
		WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	err = archive.SaveJob(context.Background(), sampleJob())
	require.ErrorContains(t, err, "upsert job")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveJobRollsBackOnPageError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	archive, err := NewArchiveWithPool(mock, "archived_jobs", "archived_pages")
	require.NoError(t, err)

	job := sampleJob()
	pageValues, err := pageArgs(job.ID, 0, job.Pages[0])
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO archived_jobs").
		WithArgs(anyArgs(len(jobArgs(job)))...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM archived_pages").
		WithArgs(job.ID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO archived_pages").
		WithArgs(anyArgs(len(pageValues))...).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = archive.SaveJob(context.Background(), job)
	require.ErrorContains(t, err, "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	archive, err := NewArchiveWithPool(mock, "", "")
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS jobs").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS pages").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, archive.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewArchiveValidation(t *testing.T) {
	t.Parallel()

	_, err := NewArchiveWithPool(nil, "", "")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewArchiveWithPool(mock, "jobs; DROP TABLE x", "")
	require.Error(t, err)

	_, err = NewArchive(context.Background(), ArchiveConfig{})
	require.Error(t, err)

	var nilArchive *Archive
	require.Error(t, nilArchive.SaveJob(context.Background(), sampleJob()))
	nilArchive.Close()
}
