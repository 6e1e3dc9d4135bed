package leads

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDeps returns a clock that advances one minute per call and sequential IDs.
func testDeps() deps {
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	seq := 0
	return deps{
		now: func() time.Time {
			current = current.Add(time.Minute)
			return current
		},
		newID: func() string {
			seq++
			return fmt.Sprintf("lead-%d", seq)
		},
	}
}

func repositoryFactories(t *testing.T) map[string]func(t *testing.T) Repository {
	return map[string]func(t *testing.T) Repository{
		"memory": func(t *testing.T) Repository {
			repo := NewInMemoryRepository()
			repo.deps = testDeps()
			return repo
		},
		"file": func(t *testing.T) Repository {
			repo, err := NewFileRepository(t.TempDir())
			require.NoError(t, err)
			repo.deps = testDeps()
			return repo
		},
		"redis": func(t *testing.T) Repository {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			repo := NewRedisRepository(client)
			repo.deps = testDeps()
			return repo
		},
	}
}

func TestRepositories(t *testing.T) {
	for name, factory := range repositoryFactories(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("upsert leaves the request untouched", func(t *testing.T) {
				repo := factory(t)
				req := &CreateLeadRequest{
					Name:  "  Jane Smith ",
					Phone: "(415) 867-5309",
					Email: "Jane@Example.com",
				}
				want := *req
				lead, _, err := repo.Upsert(context.Background(), req)
				require.NoError(t, err)
				assert.Equal(t, "+14158675309", lead.Phone)
				assert.Equal(t, "jane@example.com", lead.Email)
				assert.Equal(t, want, *req)
			})

			t.Run("upsert creates with defaults", func(t *testing.T) {
				repo := factory(t)
				lead, created, err := repo.Upsert(context.Background(), &CreateLeadRequest{
					Name:    "  Jane Smith ",
					Phone:   "(415) 867-5309",
					Address: "123 Main St, Springfield",
				})
				require.NoError(t, err)
				assert.True(t, created)
				assert.Equal(t, "lead-1", lead.ID)
				assert.Equal(t, "Jane Smith", lead.Name)
				assert.Equal(t, "+14158675309", lead.Phone)
				assert.Equal(t, 1, lead.EmergencyLevel)
				assert.Equal(t, StatusNew, lead.Status)
				assert.Equal(t, ContactPhone, lead.PreferredContact)
				assert.Equal(t, lead.CreatedAt, lead.UpdatedAt)

				got, err := repo.GetByID(context.Background(), lead.ID)
				require.NoError(t, err)
				assert.Equal(t, lead.Name, got.Name)
				assert.True(t, lead.CreatedAt.Equal(got.CreatedAt))
			})

			t.Run("repeat phone merges into existing lead", func(t *testing.T) {
				repo := factory(t)
				first, _, err := repo.Upsert(context.Background(), &CreateLeadRequest{
					Name:  "Jane Smith",
					Phone: "415-867-5309",
				})
				require.NoError(t, err)

				second, created, err := repo.Upsert(context.Background(), &CreateLeadRequest{
					Name:           "Jane Smith",
					Phone:          "+1 415 867 5309",
					Problem:        "Water is dripping through the kitchen ceiling",
					EmergencyLevel: 5,
				})
				require.NoError(t, err)
				assert.False(t, created)
				assert.Equal(t, first.ID, second.ID)
				assert.Equal(t, 5, second.EmergencyLevel)
				assert.Equal(t, "Water is dripping through the kitchen ceiling", second.Problem)
				assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

				all, err := repo.List(context.Background(), ListLeadsFilter{})
				require.NoError(t, err)
				assert.Len(t, all, 1)
			})

			t.Run("repeat email matches case-insensitively", func(t *testing.T) {
				repo := factory(t)
				first, _, err := repo.Upsert(context.Background(), &CreateLeadRequest{
					Name:  "Bob Jones",
					Email: "Bob@Example.com",
				})
				require.NoError(t, err)
				assert.Equal(t, "bob@example.com", first.Email)

				second, created, err := repo.Upsert(context.Background(), &CreateLeadRequest{
					Name:  "Bob Jones",
					Email: "BOB@example.COM",
					City:  "Austin",
				})
				require.NoError(t, err)
				assert.False(t, created)
				assert.Equal(t, first.ID, second.ID)
				assert.Equal(t, "Austin", second.City)
			})

			t.Run("list orders newest first and filters", func(t *testing.T) {
				repo := factory(t)
				for _, name := range []string{"Ann Lee", "Ben Cho", "Cal Diaz"} {
					_, _, err := repo.Upsert(context.Background(), &CreateLeadRequest{
						Name:  name,
						Email: fmt.Sprintf("%s@example.com", name[:3]),
					})
					require.NoError(t, err)
				}
				scheduled := StatusScheduled
				_, err := repo.Update(context.Background(), "lead-2", &UpdateLeadRequest{Status: &scheduled})
				require.NoError(t, err)

				all, err := repo.List(context.Background(), ListLeadsFilter{})
				require.NoError(t, err)
				require.Len(t, all, 3)
				assert.Equal(t, []string{"lead-3", "lead-2", "lead-1"}, []string{all[0].ID, all[1].ID, all[2].ID})

				page, err := repo.List(context.Background(), ListLeadsFilter{Limit: 1, Offset: 1})
				require.NoError(t, err)
				require.Len(t, page, 1)
				assert.Equal(t, "lead-2", page[0].ID)

				filtered, err := repo.List(context.Background(), ListLeadsFilter{Status: StatusScheduled})
				require.NoError(t, err)
				require.Len(t, filtered, 1)
				assert.Equal(t, "Ben Cho", filtered[0].Name)

				empty, err := repo.List(context.Background(), ListLeadsFilter{Offset: 10})
				require.NoError(t, err)
				assert.Empty(t, empty)
			})

			t.Run("update and delete", func(t *testing.T) {
				repo := factory(t)
				lead, _, err := repo.Upsert(context.Background(), &CreateLeadRequest{
					Name:  "Dee Park",
					Phone: "4158675309",
				})
				require.NoError(t, err)

				contacted := StatusContacted
				slot := "Tomorrow 9:00 AM"
				updated, err := repo.Update(context.Background(), lead.ID, &UpdateLeadRequest{
					Status:        &contacted,
					ScheduledTime: &slot,
				})
				require.NoError(t, err)
				assert.Equal(t, StatusContacted, updated.Status)
				assert.Equal(t, slot, updated.ScheduledTime)

				_, err = repo.Update(context.Background(), "missing", &UpdateLeadRequest{Status: &contacted})
				assert.ErrorIs(t, err, ErrLeadNotFound)

				bogus := Status("archived")
				_, err = repo.Update(context.Background(), lead.ID, &UpdateLeadRequest{Status: &bogus})
				assert.ErrorIs(t, err, ErrInvalidLead)

				require.NoError(t, repo.Delete(context.Background(), lead.ID))
				assert.ErrorIs(t, repo.Delete(context.Background(), lead.ID), ErrLeadNotFound)
				_, err = repo.GetByID(context.Background(), lead.ID)
				assert.ErrorIs(t, err, ErrLeadNotFound)
			})

			t.Run("rejects invalid leads", func(t *testing.T) {
				repo := factory(t)
				_, _, err := repo.Upsert(context.Background(), &CreateLeadRequest{Name: "J", Phone: "4158675309"})
				assert.ErrorIs(t, err, ErrInvalidName)

				_, _, err = repo.Upsert(context.Background(), &CreateLeadRequest{Name: "Jane Smith"})
				assert.ErrorIs(t, err, ErrMissingContact)

				all, err := repo.List(context.Background(), ListLeadsFilter{})
				require.NoError(t, err)
				assert.Empty(t, all)
			})
		})
	}
}

func TestFileRepository_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileRepository(dir)
	require.NoError(t, err)
	lead, _, err := repo.Upsert(context.Background(), &CreateLeadRequest{Name: "Jane Smith", Phone: "4158675309"})
	require.NoError(t, err)

	reopened, err := NewFileRepository(dir)
	require.NoError(t, err)
	got, err := reopened.GetByID(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", got.Name)
}

func TestFileRepository_EmptyFileIsNoLeads(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(repo.Path(), nil, 0o644))

	all, err := repo.List(context.Background(), ListLeadsFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestInMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewInMemoryRepository()
	lead, _, err := repo.Upsert(context.Background(), &CreateLeadRequest{Name: "Jane Smith", Phone: "4158675309"})
	require.NoError(t, err)
	lead.Name = "Mutated"

	got, err := repo.GetByID(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", got.Name)
}

func TestNewRedisRepository_PanicsOnNilClient(t *testing.T) {
	assert.Panics(t, func() { NewRedisRepository(nil) })
}
