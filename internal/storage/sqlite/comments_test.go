package sqlite

import (
	"testing"

	"github.com/taskdeck/taskdeck/internal/types"
)

func TestCommentRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("Discussed task")

	comment := &types.Comment{
		TaskID:   task.ID,
		AgentID:  "agent-1",
		Content:  "looks good so far",
		Mentions: []string{"agent-2", "agent-3"},
	}
	if err := env.Store.CreateComment(env.Ctx, comment); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	if comment.ID == 0 {
		t.Fatal("Expected comment id assigned")
	}

	got, err := env.Store.GetComment(env.Ctx, comment.ID)
	if err != nil {
		t.Fatalf("GetComment failed: %v", err)
	}
	if got.Content != comment.Content || got.AgentID != "agent-1" {
		t.Errorf("Comment fields do not round-trip: %+v", got)
	}
	if len(got.Mentions) != 2 || got.Mentions[0] != "agent-2" {
		t.Errorf("Expected mentions to round-trip, got %v", got.Mentions)
	}
	if got.UpdatedAt != nil {
		t.Error("Expected updated_at nil before any edit")
	}
}

func TestCommentOnMissingTask(t *testing.T) {
	env := newTestEnv(t)
	err := env.Store.CreateComment(env.Ctx, &types.Comment{TaskID: 9999, AgentID: "agent-1", Content: "lost"})
	if !types.IsKind(err, types.KindNotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
}

func TestReplyMustTargetSameTask(t *testing.T) {
	env := newTestEnv(t)
	taskA := env.CreateTask("Thread A")
	taskB := env.CreateTask("Thread B")

	root := &types.Comment{TaskID: taskA.ID, AgentID: "agent-1", Content: "root comment"}
	if err := env.Store.CreateComment(env.Ctx, root); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	crossReply := &types.Comment{TaskID: taskB.ID, AgentID: "agent-2", Content: "wrong thread", ParentCommentID: &root.ID}
	if err := env.Store.CreateComment(env.Ctx, crossReply); !types.IsKind(err, types.KindValidation) {
		t.Errorf("Expected ValidationError for cross-task reply, got %v", err)
	}

	reply := &types.Comment{TaskID: taskA.ID, AgentID: "agent-2", Content: "right thread", ParentCommentID: &root.ID}
	if err := env.Store.CreateComment(env.Ctx, reply); err != nil {
		t.Errorf("Expected same-task reply to pass, got %v", err)
	}
}

func TestUpdateCommentSetsEditedStamp(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("Edited comment task")
	comment := &types.Comment{TaskID: task.ID, AgentID: "agent-1", Content: "first draft"}
	if err := env.Store.CreateComment(env.Ctx, comment); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	if err := env.Store.UpdateComment(env.Ctx, comment.ID, "second draft", nil); err != nil {
		t.Fatalf("UpdateComment failed: %v", err)
	}
	got, err := env.Store.GetComment(env.Ctx, comment.ID)
	if err != nil {
		t.Fatalf("GetComment failed: %v", err)
	}
	if got.Content != "second draft" {
		t.Errorf("Expected edited content, got %q", got.Content)
	}
	if got.UpdatedAt == nil {
		t.Error("Expected updated_at set after edit")
	}
}

func TestDeleteCommentCascadesToReplies(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("Cascading thread")
	root := &types.Comment{TaskID: task.ID, AgentID: "agent-1", Content: "root"}
	if err := env.Store.CreateComment(env.Ctx, root); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	reply := &types.Comment{TaskID: task.ID, AgentID: "agent-2", Content: "reply", ParentCommentID: &root.ID}
	if err := env.Store.CreateComment(env.Ctx, reply); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	if err := env.Store.DeleteComment(env.Ctx, root.ID); err != nil {
		t.Fatalf("DeleteComment failed: %v", err)
	}
	comments, err := env.Store.GetComments(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("GetComments failed: %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("Expected cascade delete of replies, got %d comments", len(comments))
	}
}

func TestGetCommentsOldestFirst(t *testing.T) {
	env := newTestEnv(t)
	task := env.CreateTask("Ordered thread")
	for _, content := range []string{"one", "two", "three"} {
		if err := env.Store.CreateComment(env.Ctx, &types.Comment{TaskID: task.ID, AgentID: "agent-1", Content: content}); err != nil {
			t.Fatalf("CreateComment failed: %v", err)
		}
	}

	comments, err := env.Store.GetComments(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("GetComments failed: %v", err)
	}
	if len(comments) != 3 {
		t.Fatalf("Expected 3 comments, got %d", len(comments))
	}
	if comments[0].Content != "one" || comments[2].Content != "three" {
		t.Errorf("Expected append order, got [%s %s %s]",
			comments[0].Content, comments[1].Content, comments[2].Content)
	}
}
