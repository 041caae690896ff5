package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mentorship/core/student"
	"github.com/trezcool/mentorship/core/user"
)

var errStudentNotFoundInCtx = errors.New("student object not found in echo.Context")

type studentApi struct {
	svc      student.ServiceInterface
	userSvc  user.ServiceInterface
	validate *validator.Validate
}

func registerStudentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *authenticator,
	svc student.ServiceInterface,
	validate *validator.Validate,
) {
	api := studentApi{
		svc:      svc,
		userSvc:  auth.svc,
		validate: validate,
	}
	staff := roleMiddleware(user.RoleAdmin, user.RoleMentor)

	sg := g.Group("/students", jwt)
	sg.GET("", api.query, staff)
	sg.POST("", api.create, adminMiddleware())
	sg.GET("/risk-report", api.riskReport, staff)

	// detail endpoints
	dg := sg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, staff)
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.GET("/profile", api.profile)
}

// canAccess tells whether usr may see s: admins see everyone, mentors their mentees
// and students their own record.
func canAccess(usr user.User, s student.Student) bool {
	switch {
	case usr.IsAdmin():
		return true
	case usr.IsMentor():
		return s.Mentor != "" && strings.EqualFold(s.Mentor, usr.Name)
	case usr.IsStudent():
		return usr.StudentID.Valid && usr.StudentID.Int == s.ID
	}
	return false
}

// scopeFilter restricts mentors to their own mentees.
func scopeFilter(usr user.User, filter *student.QueryFilter) {
	if !usr.IsAdmin() && usr.IsMentor() {
		filter.Mentor = usr.Name
	}
}

// Handlers

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	scopeFilter(ctxUsr, filter)

	students, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) riskReport(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	scopeFilter(ctxUsr, filter)

	report, err := api.svc.RiskReport(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "building risk report")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) update(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	// mentors cannot hand their mentees over
	if !ctxUsr.IsAdmin() && data.Mentor != "" && !strings.EqualFold(data.Mentor, s.Mentor) {
		return errHttpForbidden
	}

	if err := data.Validate(ctx.Request().Context(), s, api.validate, api.svc); err != nil {
		return err
	}

	s, err = api.svc.Update(ctx.Request().Context(), s.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), s.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) profile(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}

	p, err := api.svc.Profile(ctx.Request().Context(), s.ID)
	if err != nil {
		return errors.Wrap(err, "building student profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

// objectMiddleware loads the student of the `:id` path param if the context user can access it.
func (api *studentApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ctxUsr, err := getContextUser(ctx, api.userSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}

		id, err := strconv.Atoi(ctx.Param("id"))
		if err != nil {
			return errHttpNotFound
		}
		s, err := api.svc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding student by ID")
		}
		if !canAccess(ctxUsr, s) {
			return errHttpNotFound
		}
		ctx.Set(contextObjectKey, s)
		return next(ctx)
	}
}
