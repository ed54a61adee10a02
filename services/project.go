package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atelierhq/atelier/db"
	"github.com/atelierhq/atelier/guard"
)

// ProjectService handles projects and every nested resource under them.
// Each guarded mutation builds a RequestContext and runs the pipeline's
// before hooks ahead of the write; project creation also runs the after
// hooks (director provisioning, container provisioning) once the row is
// committed.
type ProjectService struct {
	PG        *sql.DB
	Pipeline  *guard.Pipeline
	Broadcast *EventBroadcaster
}

// NewProjectService creates a new ProjectService
func NewProjectService(pg *sql.DB, pipeline *guard.Pipeline, broadcast *EventBroadcaster) *ProjectService {
	return &ProjectService{PG: pg, Pipeline: pipeline, Broadcast: broadcast}
}

// ============================================================================
// Projects
// ============================================================================

// CreateProject creates a project owned by the actor, then provisions the
// director role, the creator's membership and the project container.
func (s *ProjectService) CreateProject(ctx context.Context, actorID, name string) (*guard.Project, error) {
	rc := &guard.RequestContext{
		ActorID:  actorID,
		Mutation: guard.MutationCreateProject,
	}
	if err := s.Pipeline.RunBefore(ctx, rc); err != nil {
		return nil, err
	}

	project := &guard.Project{
		ID:        uuid.New().String(),
		Name:      name,
		AccountID: actorID,
		CreatedAt: time.Now(),
	}

	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO projects (id, name, account_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, project.ID, project.Name, project.AccountID, project.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	if err := s.Pipeline.RunAfter(ctx, rc, project.ID); err != nil {
		return nil, err
	}

	if s.Broadcast != nil {
		s.Broadcast.ProjectProvisioned(ctx, project.ID, actorID)
	}
	return project, nil
}

// GetProject retrieves a project by ID
func (s *ProjectService) GetProject(ctx context.Context, id string) (*guard.Project, error) {
	var p guard.Project
	err := s.PG.QueryRowContext(ctx, `
		SELECT id, name, account_id, created_at FROM projects WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.AccountID, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// ListProjectsByAccount returns the projects the account owns.
func (s *ProjectService) ListProjectsByAccount(ctx context.Context, accountID string) ([]guard.Project, error) {
	rows, err := s.PG.QueryContext(ctx, `
		SELECT id, name, account_id, created_at FROM projects
		WHERE account_id = $1
		ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]guard.Project, 0)
	for rows.Next() {
		var p guard.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.AccountID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ============================================================================
// Project membership
// ============================================================================

// LinkAccount adds an account to a project's member set. The target may be a
// primary key or an email address; the guard pipeline resolves emails to IDs
// before the write.
func (s *ProjectService) LinkAccount(ctx context.Context, actorID, projectID, target string) error {
	rc := &guard.RequestContext{
		ActorID:    actorID,
		Mutation:   guard.MutationLinkProjectAccount,
		InstanceID: projectID,
		TargetID:   target,
	}
	if err := s.Pipeline.RunBefore(ctx, rc); err != nil {
		return err
	}

	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO project_accounts (project_id, account_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id, account_id) DO NOTHING
	`, rc.InstanceID, rc.TargetID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to link account to project: %w", err)
	}
	return nil
}

// ListProjectAccounts returns the accounts linked into the project.
func (s *ProjectService) ListProjectAccounts(ctx context.Context, projectID string) ([]guard.Account, error) {
	rows, err := s.PG.QueryContext(ctx, `
		SELECT a.id, a.email, a.username, COALESCE(a.firstname, ''), COALESCE(a.lastname, ''), a.created_at
		FROM accounts a
		JOIN project_accounts pa ON pa.account_id = a.id
		WHERE pa.project_id = $1
		ORDER BY a.username
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]guard.Account, 0)
	for rows.Next() {
		var a guard.Account
		if err := rows.Scan(&a.ID, &a.Email, &a.Username, &a.Firstname, &a.Lastname, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ============================================================================
// Roles
// ============================================================================

// CreateRole creates a named role scoped to the project.
func (s *ProjectService) CreateRole(ctx context.Context, projectID, name string) (*guard.Role, error) {
	role := &guard.Role{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Name:      name,
		CreatedAt: time.Now(),
	}

	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO project_roles (id, project_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`, role.ID, role.ProjectID, role.Name, role.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	return role, nil
}

// LinkRole grants a role to an account. Only a director of the role's
// project may grant; the guard pipeline enforces that before the write.
func (s *ProjectService) LinkRole(ctx context.Context, actorID, accountID, roleID string) error {
	rc := &guard.RequestContext{
		ActorID:    actorID,
		Mutation:   guard.MutationLinkAccountRole,
		InstanceID: accountID,
		TargetID:   roleID,
	}
	if err := s.Pipeline.RunBefore(ctx, rc); err != nil {
		return err
	}

	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO role_memberships (role_id, account_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (role_id, account_id) DO NOTHING
	`, roleID, accountID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to link role to account: %w", err)
	}
	return nil
}

// ListAccountRolesInProject returns the account's role names within one project.
func (s *ProjectService) ListAccountRolesInProject(ctx context.Context, accountID, projectID string) ([]guard.Role, error) {
	rows, err := s.PG.QueryContext(ctx, `
		SELECT r.id, r.project_id, r.name, r.created_at
		FROM project_roles r
		JOIN role_memberships m ON m.role_id = r.id
		WHERE m.account_id = $1 AND r.project_id = $2
		ORDER BY r.name
	`, accountID, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list account roles: %w", err)
	}
	defer rows.Close()

	roles := make([]guard.Role, 0)
	for rows.Next() {
		var r guard.Role
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Name, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// ============================================================================
// Bugs
// ============================================================================

// CreateBugInput represents input for filing a bug
type CreateBugInput struct {
	Name        string `json:"name" binding:"required"`
	State       string `json:"state"`
	Description string `json:"description"`
}

// CreateBug files a bug under the project. The creator is always the
// authenticated actor; any client-sent creator is discarded by the guard.
func (s *ProjectService) CreateBug(ctx context.Context, actorID, projectID string, input CreateBugInput) (*db.Bug, error) {
	rc := &guard.RequestContext{
		ActorID:    actorID,
		Mutation:   guard.MutationCreateBug,
		InstanceID: projectID,
		Payload:    map[string]any{"name": input.Name},
	}
	if err := s.Pipeline.RunBefore(ctx, rc); err != nil {
		return nil, err
	}

	state := input.State
	if state == "" {
		state = "open"
	}

	creatorID, _ := rc.Payload["creatorId"].(string)
	bug := &db.Bug{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		CreatorID:   creatorID,
		Name:        input.Name,
		State:       state,
		Description: input.Description,
		CreatedAt:   time.Now(),
	}

	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO bugs (id, project_id, creator_id, name, state, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, bug.ID, bug.ProjectID, bug.CreatorID, bug.Name, bug.State, bug.Description, bug.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create bug: %w", err)
	}
	return bug, nil
}

// GetBug retrieves a bug with its assignees.
func (s *ProjectService) GetBug(ctx context.Context, id string) (*db.Bug, error) {
	var b db.Bug
	err := s.PG.QueryRowContext(ctx, `
		SELECT id, project_id, creator_id, name, state, COALESCE(description, ''), created_at
		FROM bugs WHERE id = $1
	`, id).Scan(&b.ID, &b.ProjectID, &b.CreatorID, &b.Name, &b.State, &b.Description, &b.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bug: %w", err)
	}

	rows, err := s.PG.QueryContext(ctx, `
		SELECT account_id FROM bug_assignees WHERE bug_id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list bug assignees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var accountID string
		if err := rows.Scan(&accountID); err != nil {
			return nil, fmt.Errorf("failed to scan assignee: %w", err)
		}
		b.AssigneeIDs = append(b.AssigneeIDs, accountID)
	}
	return &b, rows.Err()
}

// AssignBug links an account as an assignee of the bug.
func (s *ProjectService) AssignBug(ctx context.Context, bugID, accountID string) error {
	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO bug_assignees (bug_id, account_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (bug_id, account_id) DO NOTHING
	`, bugID, accountID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to assign bug: %w", err)
	}
	return nil
}

// ListBugs returns the project's bugs, newest first.
func (s *ProjectService) ListBugs(ctx context.Context, projectID string) ([]db.Bug, error) {
	rows, err := s.PG.QueryContext(ctx, `
		SELECT id, project_id, creator_id, name, state, COALESCE(description, ''), created_at
		FROM bugs
		WHERE project_id = $1
		ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bugs: %w", err)
	}
	defer rows.Close()

	bugs := make([]db.Bug, 0)
	for rows.Next() {
		var b db.Bug
		if err := rows.Scan(&b.ID, &b.ProjectID, &b.CreatorID, &b.Name, &b.State, &b.Description, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bug: %w", err)
		}
		bugs = append(bugs, b)
	}
	return bugs, rows.Err()
}

// ============================================================================
// Tasks, meetings, steps
// ============================================================================

// CreateTask creates a task under the project.
func (s *ProjectService) CreateTask(ctx context.Context, projectID, name, state string) (*db.Task, error) {
	if state == "" {
		state = "open"
	}
	task := &db.Task{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Name:      name,
		State:     state,
		CreatedAt: time.Now(),
	}

	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO tasks (id, project_id, name, state, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, task.ID, task.ProjectID, task.Name, task.State, task.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// ListTasks returns the project's tasks.
func (s *ProjectService) ListTasks(ctx context.Context, projectID string) ([]db.Task, error) {
	rows, err := s.PG.QueryContext(ctx, `
		SELECT id, project_id, name, state, created_at FROM tasks
		WHERE project_id = $1
		ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]db.Task, 0)
	for rows.Next() {
		var t db.Task
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Name, &t.State, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CreateMeeting schedules a meeting under the project.
func (s *ProjectService) CreateMeeting(ctx context.Context, projectID, subject, place string, date time.Time) (*db.Meeting, error) {
	meeting := &db.Meeting{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Date:      date,
		Subject:   subject,
		Place:     place,
		CreatedAt: time.Now(),
	}

	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO meetings (id, project_id, date, subject, place, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, meeting.ID, meeting.ProjectID, meeting.Date, meeting.Subject, meeting.Place, meeting.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create meeting: %w", err)
	}
	return meeting, nil
}

// CreateStep records a milestone step under the project.
func (s *ProjectService) CreateStep(ctx context.Context, projectID, name, state string, date time.Time) (*db.Step, error) {
	if state == "" {
		state = "pending"
	}
	step := &db.Step{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Date:      date,
		Name:      name,
		State:     state,
		CreatedAt: time.Now(),
	}

	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO steps (id, project_id, date, name, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, step.ID, step.ProjectID, step.Date, step.Name, step.State, step.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create step: %w", err)
	}
	return step, nil
}
