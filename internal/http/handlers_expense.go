package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"spendwise/internal/auth"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/storage"
)

// expensePage is the content of the add/edit expense form.
type expensePage struct {
	Action     string
	Submit     string
	Form       expenseForm
	Errors     map[string]string
	Categories []string
}

func newExpensePage(action, submit string, form expenseForm, errs map[string]string) expensePage {
	return expensePage{
		Action:     action,
		Submit:     submit,
		Form:       form,
		Errors:     errs,
		Categories: core.Categories,
	}
}

func (s *Server) handleAddExpenseForm(w http.ResponseWriter, r *http.Request) {
	form := expenseForm{Date: time.Now().Format(core.DateLayout)}
	s.render(w, r, http.StatusOK, "expense_form.html", "Add Expense",
		newExpensePage("/add-expense", "Add Expense", form, nil))
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := currentSession(r)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	form := expenseFormFromValues(r.PostForm)
	if errs := form.Validate(); errs != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "expense_form.html", "Add Expense",
			newExpensePage("/add-expense", "Add Expense", form, errs))
		return
	}
	e, err := form.Expense(sess.UserID)
	if err == nil {
		_, err = s.expenses.Create(ctx, e)
	}
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to add expense", log.FieldError, err.Error(), log.FieldOperation, log.OpCreate)
		s.render(w, r, http.StatusUnprocessableEntity, "expense_form.html", "Add Expense",
			newExpensePage("/add-expense", "Add Expense", form, map[string]string{"": "Error adding expense: " + err.Error()}))
		return
	}

	s.sessions.AddFlash(w, r, auth.FlashSuccess, "Expense added successfully!")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// loadOwnedExpense fetches the expense named in the URL. On failure it
// flashes the reason, redirects to the dashboard and returns false.
func (s *Server) loadOwnedExpense(w http.ResponseWriter, r *http.Request) (core.Expense, bool) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	e, err := s.expenses.Get(ctx, currentSession(r).UserID, id)
	switch {
	case err == nil:
		return e, true
	case errors.Is(err, storage.ErrNotFound):
		s.sessions.AddFlash(w, r, auth.FlashDanger, "Expense not found")
	case errors.Is(err, storage.ErrForbidden):
		log.FromContext(ctx).WarnContext(ctx, "Expense access denied", log.FieldExpenseID, id)
		s.sessions.AddFlash(w, r, auth.FlashDanger, "You do not have permission to edit this expense")
	default:
		log.FromContext(ctx).ErrorContext(ctx, "Failed to load expense", log.FieldExpenseID, id, log.FieldError, err.Error())
		s.sessions.AddFlash(w, r, auth.FlashDanger, "Error loading expense")
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	return core.Expense{}, false
}

func (s *Server) handleEditExpenseForm(w http.ResponseWriter, r *http.Request) {
	e, ok := s.loadOwnedExpense(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "expense_form.html", "Edit Expense",
		newExpensePage("/edit-expense/"+e.ID, "Update Expense", expenseFormFrom(e), nil))
}

func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	existing, ok := s.loadOwnedExpense(w, r)
	if !ok {
		return
	}
	action := "/edit-expense/" + existing.ID

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	form := expenseFormFromValues(r.PostForm)
	if errs := form.Validate(); errs != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "expense_form.html", "Edit Expense",
			newExpensePage(action, "Update Expense", form, errs))
		return
	}
	e, err := form.Expense(existing.UserID)
	if err == nil {
		e.ID = existing.ID
		err = s.expenses.Update(ctx, e)
	}
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to update expense",
			log.FieldExpenseID, existing.ID, log.FieldError, err.Error(), log.FieldOperation, log.OpUpdate)
		s.render(w, r, http.StatusUnprocessableEntity, "expense_form.html", "Edit Expense",
			newExpensePage(action, "Update Expense", form, map[string]string{"": "Error updating expense: " + err.Error()}))
		return
	}

	s.sessions.AddFlash(w, r, auth.FlashSuccess, "Expense updated successfully!")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// handleDeleteExpense is called by the dashboard script and answers JSON.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	err := s.expenses.Delete(ctx, currentSession(r).UserID, id)
	switch {
	case err == nil:
		NewJSONResponse().Write(w)
	case errors.Is(err, storage.ErrNotFound):
		NotFoundError("Expense not found").Write(w)
	case errors.Is(err, storage.ErrForbidden):
		log.FromContext(ctx).WarnContext(ctx, "Expense delete denied", log.FieldExpenseID, id)
		ForbiddenError("Permission denied").Write(w)
	default:
		log.FromContext(ctx).ErrorContext(ctx, "Failed to delete expense",
			log.FieldExpenseID, id, log.FieldError, err.Error(), log.FieldOperation, log.OpDelete)
		InternalServerError("Error deleting expense").Write(w)
	}
}
