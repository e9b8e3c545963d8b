package service

import (
	"sync"
	"testing"

	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

func TestCreateFromTicketRequiresResolution(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t, "overheating")

	_, err := env.svc.Knowledge.CreateFromTicket(env.ctx, ticket.ID, env.techActor())
	expectCode(t, err, apperrors.CodeInvalidState)

	_, err = env.svc.Knowledge.CreateFromTicket(env.ctx, "missing", env.techActor())
	expectCode(t, err, apperrors.CodeNotFound)
}

func TestCreateFromTicketOncePerTicket(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t, "overheating")
	if _, err := env.svc.Tickets.AddDiagnosis(env.ctx, ticket.ID, DiagnosisInput{
		Symptom: "shuts down under load", Diagnosis: "dried thermal paste",
	}, env.techActor()); err != nil {
		t.Fatalf("diagnose: %v", err)
	}
	if _, err := env.svc.Tickets.Resolve(env.ctx, ticket.ID, ResolveInput{Solution: "repasted CPU"}, env.techActor()); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Knowledge.CreateFromTicket(env.ctx, ticket.ID, env.techActor())
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		if !apperrors.HasCode(err, apperrors.CodeConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly one entry, got %d", created)
	}

	list, err := env.svc.Knowledge.List(env.ctx, KnowledgeListFilter{}, Pagination{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	entry := list.Items[0]
	if entry.Symptom != "overheating; shuts down under load" {
		t.Fatalf("unexpected symptom %q", entry.Symptom)
	}
	if entry.Diagnosis != "dried thermal paste" {
		t.Fatalf("expected diagnosis from diagnostics, got %q", entry.Diagnosis)
	}
}

func TestPublishIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	entry, err := env.svc.Knowledge.Create(env.ctx, KnowledgeInput{
		Title: "Reset BIOS", Symptom: "no POST", Solution: "clear CMOS", Tags: []string{"bios", " bios "},
	}, env.admin)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(entry.Tags) != 1 {
		t.Fatalf("expected deduplicated tags, got %v", entry.Tags)
	}

	for i := 0; i < 2; i++ {
		published, err := env.svc.Knowledge.Publish(env.ctx, entry.ID)
		if err != nil || !published.IsPublished {
			t.Fatalf("publish #%d: %v", i+1, err)
		}
	}
	published := true
	list, _ := env.svc.Knowledge.List(env.ctx, KnowledgeListFilter{Published: &published}, Pagination{})
	if list.Total != 1 {
		t.Fatalf("expected one published entry, got %d", list.Total)
	}

	draft, err := env.svc.Knowledge.Unpublish(env.ctx, entry.ID)
	if err != nil || draft.IsPublished {
		t.Fatalf("unpublish: %v", err)
	}

	_, err = env.svc.Knowledge.Create(env.ctx, KnowledgeInput{Title: "x"}, env.admin)
	expectCode(t, err, apperrors.CodeValidation)
}
