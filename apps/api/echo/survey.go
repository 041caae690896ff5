package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/student"
	"github.com/trezcool/mentorship/core/survey"
	"github.com/trezcool/mentorship/core/user"
)

var errSurveyNotFoundInCtx = errors.New("survey object not found in echo.Context")

type surveyApi struct {
	svc        survey.ServiceInterface
	studentSvc student.ServiceInterface
	userSvc    user.ServiceInterface
	validate   *validator.Validate
}

func registerSurveyAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *authenticator,
	svc survey.ServiceInterface,
	studentSvc student.ServiceInterface,
	validate *validator.Validate,
) {
	api := surveyApi{
		svc:        svc,
		studentSvc: studentSvc,
		userSvc:    auth.svc,
		validate:   validate,
	}

	sg := g.Group("/surveys", jwt)
	sg.GET("", api.query)
	sg.POST("", api.create, adminMiddleware())

	// detail endpoints
	dg := sg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.POST("/responses", api.respond)
	dg.GET("/responses", api.queryResponses, adminMiddleware())
	dg.GET("/responded", api.responded)
	dg.GET("/results", api.results, adminMiddleware())
}

// audiences returns the survey audiences usr belongs to, besides all students.
func (api *surveyApi) audiences(ctx echo.Context, usr user.User) ([]string, error) {
	var audiences []string
	if usr.IsMentor() {
		audiences = append(audiences, survey.AudienceMentors)
	}
	if usr.IsStudent() && usr.StudentID.Valid {
		s, err := api.studentSvc.GetByID(ctx.Request().Context(), usr.StudentID.Int)
		if err != nil && errors.Cause(err) != student.ErrNotFound {
			return nil, errors.Wrap(err, "finding student record")
		}
		if err == nil && s.Year != "" {
			audiences = append(audiences, survey.YearAudience(s.Year))
		}
	}
	return audiences, nil
}

// Handlers

func (api *surveyApi) create(ctx echo.Context) error {
	var data survey.NewSurvey
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSurvey")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	createdBy := ctxUsr.Username
	if createdBy == "" {
		createdBy = ctxUsr.ID
	}

	s, err := api.svc.Create(ctx.Request().Context(), data, createdBy)
	if err != nil {
		return errors.Wrap(err, "creating survey")
	}
	return ctx.JSON(http.StatusCreated, s)
}

// query lists every survey for admins and the surveys open to them for everyone else.
func (api *surveyApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var surveys []survey.Survey
	if ctxUsr.IsAdmin() {
		filter := new(survey.QueryFilter)
		if err = ctx.Bind(filter); err != nil {
			return ctx.JSON(http.StatusOK, []survey.Survey{})
		}
		ordering := new(Ordering)
		ordering.Bind(ctx)
		surveys, err = api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	} else {
		var audiences []string
		if audiences, err = api.audiences(ctx, ctxUsr); err != nil {
			return err
		}
		surveys, err = api.svc.AvailableFor(ctx.Request().Context(), audiences...)
	}
	if err != nil {
		return errors.Wrap(err, "querying surveys")
	}
	if surveys == nil {
		surveys = []survey.Survey{}
	}
	return ctx.JSON(http.StatusOK, surveys)
}

func (api *surveyApi) retrieve(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(survey.Survey)
	if !ok {
		return errors.Wrap(errSurveyNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *surveyApi) update(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(survey.Survey)
	if !ok {
		return errors.Wrap(errSurveyNotFoundInCtx, "retrieving object from context")
	}

	var data survey.UpdateSurvey
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSurvey")
	}
	if err := data.Validate(s, api.validate); err != nil {
		return err
	}

	s, err := api.svc.Update(ctx.Request().Context(), s.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating survey")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *surveyApi) destroy(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(survey.Survey)
	if !ok {
		return errors.Wrap(errSurveyNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), s.ID); err != nil {
		return errors.Wrap(err, "deleting survey")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *surveyApi) respond(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(survey.Survey)
	if !ok {
		return errors.Wrap(errSurveyNotFoundInCtx, "retrieving object from context")
	}

	var data survey.Submission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	r, err := api.svc.Submit(ctx.Request().Context(), s.ID, ctxUsr.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *surveyApi) queryResponses(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(survey.Survey)
	if !ok {
		return errors.Wrap(errSurveyNotFoundInCtx, "retrieving object from context")
	}

	responses, err := api.svc.Responses(ctx.Request().Context(), survey.ResponseFilter{SurveyID: s.ID})
	if err != nil {
		return errors.Wrap(err, "querying survey responses")
	}
	if responses == nil {
		responses = []survey.Response{}
	}
	return ctx.JSON(http.StatusOK, responses)
}

func (api *surveyApi) responded(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(survey.Survey)
	if !ok {
		return errors.Wrap(errSurveyNotFoundInCtx, "retrieving object from context")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ok, err = api.svc.HasResponded(ctx.Request().Context(), s.ID, ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "checking survey response")
	}
	return ctx.JSON(http.StatusOK, RespondedResponse{Responded: ok})
}

func (api *surveyApi) results(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(survey.Survey)
	if !ok {
		return errors.Wrap(errSurveyNotFoundInCtx, "retrieving object from context")
	}

	res, err := api.svc.Results(ctx.Request().Context(), s.ID)
	if err != nil {
		return errors.Wrap(err, "computing survey results")
	}
	return ctx.JSON(http.StatusOK, res)
}

// objectMiddleware loads the survey of the `:id` path param. Non-admins only see the surveys open to them.
func (api *surveyApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ctxUsr, err := getContextUser(ctx, api.userSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}

		s, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == survey.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding survey by ID")
		}

		if !ctxUsr.IsAdmin() {
			audiences, err := api.audiences(ctx, ctxUsr)
			if err != nil {
				return err
			}
			audiences = append(audiences, survey.AudienceAllStudents)
			if s.Status != survey.StatusActive || !core.StringInSlice(s.TargetAudience, audiences) {
				return errHttpNotFound
			}
		}
		ctx.Set(contextObjectKey, s)
		return next(ctx)
	}
}

type RespondedResponse struct {
	Responded bool `json:"responded"`
}
