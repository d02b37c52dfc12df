package memory

import (
	"context"
	"errors"
	"testing"

	"rest-polls/internal/domain"
)

func TestStoreCascadesPollDelete(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	poll := domain.Poll{Name: "Capitals"}
	if err := store.CreatePoll(ctx, &poll); err != nil {
		t.Fatalf("create poll: %v", err)
	}
	question := domain.Question{PollID: poll.ID, Name: "France", Type: domain.QuestionOnlyText}
	if err := store.CreateQuestion(ctx, &question); err != nil {
		t.Fatalf("create question: %v", err)
	}
	answer := domain.Answer{QuestionID: question.ID, Name: "Paris"}
	if err := store.CreateAnswer(ctx, &answer); err != nil {
		t.Fatalf("create answer: %v", err)
	}

	if err := store.DeletePoll(ctx, poll.ID); err != nil {
		t.Fatalf("delete poll: %v", err)
	}
	if _, err := store.GetQuestion(ctx, question.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected question removed, got %v", err)
	}
	answers, _ := store.ListAnswers(ctx, question.ID)
	if len(answers) != 0 {
		t.Fatalf("expected answers removed, got %+v", answers)
	}
}

func TestStoreForcesTextAnswersTrue(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	poll := domain.Poll{Name: "Capitals"}
	_ = store.CreatePoll(ctx, &poll)
	question := domain.Question{PollID: poll.ID, Name: "France", Type: domain.QuestionOnlyText}
	_ = store.CreateQuestion(ctx, &question)

	answer := domain.Answer{QuestionID: question.ID, Name: "Paris", IsTrue: false}
	if err := store.CreateAnswer(ctx, &answer); err != nil {
		t.Fatalf("create answer: %v", err)
	}
	answer.IsTrue = false
	if err := store.UpdateAnswer(ctx, &answer); err != nil {
		t.Fatalf("update answer: %v", err)
	}

	got, _ := store.TrueAnswers(ctx, question.ID)
	if len(got) != 1 || !got[0].IsTrue {
		t.Fatalf("expected text answer stored as true, got %+v", got)
	}
}

func TestStoreUserResultsAreCopied(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	user := domain.UserAnswers{}
	user.Record(1, []domain.Verdict{{QuestionID: 2, Correct: true}})
	if err := store.CreateUser(ctx, &user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	user.Results["1"][0].Correct = false

	stored, err := store.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !stored.Results["1"][0].Correct {
		t.Fatalf("stored results mutated through caller copy")
	}

	if _, err := store.GetUser(ctx, user.ID+100); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}
