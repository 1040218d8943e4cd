package services

import (
	"context"
	"errors"

	"watchlist/pkg/envelope"
	"watchlist/pkg/logger"
	"watchlist/pkg/metrics"
	"watchlist/pkg/models"
	"watchlist/pkg/repository"
	"watchlist/pkg/tmdb"

	"github.com/sirupsen/logrus"
)

const (
	msgMovieNotFound  = "Movie not found"
	msgTitleNotFound  = "Movie not found in TMDB database"
	msgNotOwnerUpdate = "Not authorized to update this movie"
	msgNotOwnerDelete = "Not authorized to delete this movie"
	msgMovieDeleted   = "Movie deleted successfully"
)

// MovieService is the caller-scoped watchlist. Every operation takes the
// authenticated caller and only touches records that caller owns.
type MovieService interface {
	List(ctx context.Context, caller models.AuthUser) ([]models.MovieOut, error)
	Add(ctx context.Context, caller models.AuthUser, req models.AddMovieRequest) (models.MovieOut, error)
	UpdateWatched(ctx context.Context, caller models.AuthUser, id string, watched bool) (models.MovieOut, error)
	Delete(ctx context.Context, caller models.AuthUser, id string) (models.MessageResponse, error)
}

type MovieDeps struct {
	Movies  repository.MovieRepository
	Lookup  tmdb.Lookup
	Events  EventPublisher
	Metrics *metrics.Metrics
	Logger  *logrus.Logger
}

type movieService struct {
	MovieDeps
}

func NewMovieService(d MovieDeps) MovieService {
	if d.Events == nil {
		d.Events = nopEvents{}
	}
	if d.Logger == nil {
		d.Logger = logger.Discard()
	}
	return &movieService{MovieDeps: d}
}

func (s *movieService) List(ctx context.Context, caller models.AuthUser) ([]models.MovieOut, error) {
	movies, err := s.Movies.ListByOwner(ctx, caller.ID)
	if err != nil {
		return nil, internal("list movies", err)
	}
	return models.MoviesOut(movies), nil
}

func (s *movieService) Add(ctx context.Context, caller models.AuthUser, req models.AddMovieRequest) (models.MovieOut, error) {
	if err := req.Validate(); err != nil {
		return models.MovieOut{}, invalidInput(err)
	}

	meta, err := s.Lookup.SearchByTitle(ctx, req.Title)
	if err != nil {
		return models.MovieOut{}, s.lookupFailed(req.Title, err)
	}
	s.Metrics.ObserveLookup(metrics.LookupFound)

	movie, err := s.Movies.Insert(ctx, models.Movie{
		Title:       meta.Title,
		ExternalID:  meta.ExternalID,
		ImageURL:    meta.ImageURL,
		Description: meta.Description,
		Watched:     false,
		OwnerID:     caller.ID,
	})
	if err != nil {
		return models.MovieOut{}, internal("save movie", err)
	}

	out := movie.Out()
	s.Events.Emit(ctx, envelope.MovieAdded, caller.ID, out)
	s.Logger.WithFields(logrus.Fields{
		"user_id":     caller.ID,
		"movie_id":    movie.ID,
		"external_id": movie.ExternalID,
	}).Info("movie added")

	return out, nil
}

func (s *movieService) UpdateWatched(ctx context.Context, caller models.AuthUser, id string, watched bool) (models.MovieOut, error) {
	if err := s.checkOwner(ctx, caller, id, msgNotOwnerUpdate); err != nil {
		return models.MovieOut{}, err
	}

	movie, err := s.Movies.SetWatched(ctx, id, watched)
	if errors.Is(err, repository.ErrNotFound) {
		return models.MovieOut{}, newError(KindNotFound, msgMovieNotFound)
	}
	if err != nil {
		return models.MovieOut{}, internal("update movie", err)
	}

	out := movie.Out()
	s.Events.Emit(ctx, envelope.MovieWatched, caller.ID, out)
	return out, nil
}

func (s *movieService) Delete(ctx context.Context, caller models.AuthUser, id string) (models.MessageResponse, error) {
	if err := s.checkOwner(ctx, caller, id, msgNotOwnerDelete); err != nil {
		return models.MessageResponse{}, err
	}

	deleted, err := s.Movies.DeleteByID(ctx, id)
	if err != nil {
		return models.MessageResponse{}, internal("delete movie", err)
	}
	if !deleted {
		return models.MessageResponse{}, newError(KindNotFound, msgMovieNotFound)
	}

	s.Events.Emit(ctx, envelope.MovieDeleted, caller.ID, map[string]string{"id": id})
	s.Logger.WithFields(logrus.Fields{
		"user_id":  caller.ID,
		"movie_id": id,
	}).Info("movie deleted")

	return models.MessageResponse{Message: msgMovieDeleted}, nil
}

// checkOwner loads a movie and checks it belongs to caller.
func (s *movieService) checkOwner(ctx context.Context, caller models.AuthUser, id, forbidden string) error {
	movie, err := s.Movies.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return newError(KindNotFound, msgMovieNotFound)
	}
	if err != nil {
		return internal("load movie", err)
	}
	if movie.OwnerID != caller.ID {
		s.Logger.WithFields(logrus.Fields{
			"user_id":  caller.ID,
			"movie_id": id,
		}).Warn("ownership check failed")
		return newError(KindForbidden, forbidden)
	}
	return nil
}

func (s *movieService) lookupFailed(title string, err error) error {
	if errors.Is(err, tmdb.ErrNotFound) {
		s.Metrics.ObserveLookup(metrics.LookupNotFound)
		return newError(KindNotFound, msgTitleNotFound)
	}

	s.Metrics.ObserveLookup(metrics.LookupError)
	s.Logger.WithError(err).WithField("title", title).Error("metadata lookup failed")

	var perr *tmdb.ProviderError
	if errors.As(err, &perr) {
		return &Error{Kind: KindUpstream, Message: perr.Error(), Err: err}
	}
	return internal("metadata lookup", err)
}
