package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/prn-tf/meridian-accounts/internal/domain"
	"github.com/prn-tf/meridian-accounts/internal/policy"
)

func seedGroup(groups *MockGroupRepository, name string, members ...string) *domain.Group {
	g := domain.NewGroup(name)
	g.Members = members
	return groups.Add(g)
}

func TestAdminService_ListGroups(t *testing.T) {
	users := NewMockUserRepository()
	seedUser(users, "admin", true, true)
	groups := NewMockGroupRepository()
	seedGroup(groups, "analysts", "bob")
	seedGroup(groups, "developers")
	svc := newTestAdminService(users, groups)

	t.Run("superuser lists groups", func(t *testing.T) {
		out, err := svc.ListGroups(context.Background(), superCaller("admin"), ListGroupsInput{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(out.Groups) != 2 {
			t.Errorf("expected 2 groups, got %d", len(out.Groups))
		}
		if out.Groups[0].Name != "analysts" {
			t.Errorf("expected listing ordered by name, got %q first", out.Groups[0].Name)
		}
	})

	t.Run("regular user denied", func(t *testing.T) {
		_, err := svc.ListGroups(context.Background(), regularCaller("bob"), ListGroupsInput{})
		assertDenied(t, err, policy.MsgSuperuserRequiredGroup)
	})
}

func TestAdminService_CreateGroup(t *testing.T) {
	tests := []struct {
		name       string
		caller     domain.Caller
		input      CreateGroupInput
		wantDenied string
		wantFields map[string]string
	}{
		{
			name:   "superuser creates empty group",
			caller: superCaller("admin"),
			input:  CreateGroupInput{Name: "developers"},
		},
		{
			name:   "superuser creates group with members",
			caller: superCaller("admin"),
			input:  CreateGroupInput{Name: "developers", Members: []string{"admin", "bob"}},
		},
		{
			name:       "regular user denied",
			caller:     regularCaller("bob"),
			input:      CreateGroupInput{Name: "developers"},
			wantDenied: policy.MsgSuperuserRequiredGroup,
		},
		{
			name:       "invalid name",
			caller:     superCaller("admin"),
			input:      CreateGroupInput{Name: "dev team"},
			wantFields: map[string]string{"name": "dev team is not allowed"},
		},
		{
			name:       "empty name",
			caller:     superCaller("admin"),
			input:      CreateGroupInput{Name: ""},
			wantFields: map[string]string{"name": policy.MsgFieldRequired},
		},
		{
			name:       "duplicate name",
			caller:     superCaller("admin"),
			input:      CreateGroupInput{Name: "analysts"},
			wantFields: map[string]string{"name": policy.MsgDuplicateGroupName},
		},
		{
			name:       "unknown member",
			caller:     superCaller("admin"),
			input:      CreateGroupInput{Name: "developers", Members: []string{"ghost"}},
			wantFields: map[string]string{"members": "User ghost does not exist."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := NewMockUserRepository()
			seedUser(users, "admin", true, true)
			seedUser(users, "bob", true, false)
			groups := NewMockGroupRepository()
			seedGroup(groups, "analysts")
			svc := newTestAdminService(users, groups)

			out, err := svc.CreateGroup(context.Background(), tt.caller, tt.input)

			if tt.wantDenied != "" {
				assertDenied(t, err, tt.wantDenied)
				return
			}
			if tt.wantFields != nil {
				for field, want := range tt.wantFields {
					msgs := fieldMessages(t, err, field)
					if len(msgs) == 0 || msgs[0] != want {
						t.Errorf("field %q: expected %q, got %v", field, want, msgs)
					}
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			stored, err := groups.GetByName(context.Background(), tt.input.Name)
			if err != nil {
				t.Fatalf("created group not persisted: %v", err)
			}
			if len(stored.Members) != len(tt.input.Members) {
				t.Errorf("expected %d members, got %d", len(tt.input.Members), len(stored.Members))
			}
			if out.Group.ID == 0 {
				t.Error("expected assigned group ID")
			}
		})
	}
}

func TestAdminService_EditGroup(t *testing.T) {
	tests := []struct {
		name        string
		caller      domain.Caller
		input       EditGroupInput
		wantDenied  string
		wantErr     error
		wantFields  map[string]string
		wantName    string
		wantMembers []string
	}{
		{
			name:        "members replaced wholesale",
			caller:      superCaller("admin"),
			input:       EditGroupInput{Name: "analysts", Members: []string{"carol"}},
			wantName:    "analysts",
			wantMembers: []string{"carol"},
		},
		{
			name:        "members cleared when none given",
			caller:      superCaller("admin"),
			input:       EditGroupInput{Name: "analysts"},
			wantName:    "analysts",
			wantMembers: nil,
		},
		{
			name:        "rename",
			caller:      superCaller("admin"),
			input:       EditGroupInput{Name: "analysts", NewName: "data-analysts", Members: []string{"bob"}},
			wantName:    "data-analysts",
			wantMembers: []string{"bob"},
		},
		{
			name:       "rename to existing name",
			caller:     superCaller("admin"),
			input:      EditGroupInput{Name: "analysts", NewName: "developers"},
			wantFields: map[string]string{"name": policy.MsgDuplicateGroupName},
		},
		{
			name:       "rename to invalid name",
			caller:     superCaller("admin"),
			input:      EditGroupInput{Name: "analysts", NewName: "bad name"},
			wantFields: map[string]string{"name": "bad name is not allowed"},
		},
		{
			name:       "unknown member",
			caller:     superCaller("admin"),
			input:      EditGroupInput{Name: "analysts", Members: []string{"ghost"}},
			wantFields: map[string]string{"members": "User ghost does not exist."},
		},
		{
			name:    "unknown group",
			caller:  superCaller("admin"),
			input:   EditGroupInput{Name: "ghosts"},
			wantErr: domain.ErrGroupNotFound,
		},
		{
			name:       "regular user denied",
			caller:     regularCaller("bob"),
			input:      EditGroupInput{Name: "analysts"},
			wantDenied: policy.MsgSuperuserRequiredGroup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := NewMockUserRepository()
			seedUser(users, "admin", true, true)
			seedUser(users, "bob", true, false)
			seedUser(users, "carol", true, false)
			groups := NewMockGroupRepository()
			seedGroup(groups, "analysts", "bob")
			seedGroup(groups, "developers")
			svc := newTestAdminService(users, groups)

			out, err := svc.EditGroup(context.Background(), tt.caller, tt.input)

			if tt.wantDenied != "" {
				assertDenied(t, err, tt.wantDenied)
				return
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if tt.wantFields != nil {
				for field, want := range tt.wantFields {
					msgs := fieldMessages(t, err, field)
					if len(msgs) == 0 || msgs[0] != want {
						t.Errorf("field %q: expected %q, got %v", field, want, msgs)
					}
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Group.Name != tt.wantName {
				t.Errorf("expected name %q, got %q", tt.wantName, out.Group.Name)
			}
			stored, err := groups.GetByName(context.Background(), tt.wantName)
			if err != nil {
				t.Fatalf("edited group not persisted: %v", err)
			}
			if !reflect.DeepEqual(stored.Members, tt.wantMembers) {
				t.Errorf("expected members %v, got %v", tt.wantMembers, stored.Members)
			}
		})
	}
}

func TestAdminService_DeleteGroup(t *testing.T) {
	tests := []struct {
		name       string
		caller     domain.Caller
		target     string
		wantDenied string
		wantErr    error
	}{
		{
			name:   "superuser deletes group",
			caller: superCaller("admin"),
			target: "analysts",
		},
		{
			name:       "regular user denied",
			caller:     regularCaller("bob"),
			target:     "analysts",
			wantDenied: policy.MsgSuperuserRequiredDeleteGroup,
		},
		{
			name:    "unknown group",
			caller:  superCaller("admin"),
			target:  "ghosts",
			wantErr: domain.ErrGroupNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := NewMockUserRepository()
			seedUser(users, "admin", true, true)
			groups := NewMockGroupRepository()
			seedGroup(groups, "analysts", "bob")
			svc := newTestAdminService(users, groups)

			err := svc.DeleteGroup(context.Background(), tt.caller, DeleteGroupInput{Name: tt.target})

			if tt.wantDenied != "" {
				assertDenied(t, err, tt.wantDenied)
				return
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := groups.GetByName(context.Background(), tt.target); !errors.Is(err, domain.ErrGroupNotFound) {
				t.Errorf("expected group removed, got %v", err)
			}
		})
	}
}
