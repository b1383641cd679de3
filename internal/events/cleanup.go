package events

import (
	"context"

	"volunteerhub/internal/storage"
	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"

	"github.com/sirupsen/logrus"
)

// CleanupReport summarizes one cleanup run.
type CleanupReport struct {
	EventsScanned  int
	ObjectsRemoved int
	Failures       int
}

// fileRemoval is the outcome of removing one event's files.
type fileRemoval struct {
	clearImage  bool
	clearWaiver bool
	removed     int
	failed      int
}

// CleanupPastEventFiles removes image and waiver objects of events dated
// before today and clears the row references once the objects are gone.
// Individual failures are logged and the run continues.
func (s *Service) CleanupPastEventFiles(ctx context.Context) (*CleanupReport, error) {
	events, err := s.store.Events(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	past := make([]*types.Event, 0)
	needImages := false
	for _, event := range events {
		if !event.IsPast(now) || (event.ImageID == nil && event.WaiverURL == nil) {
			continue
		}
		past = append(past, event)
		needImages = needImages || event.ImageID != nil
	}

	var images []storage.Object
	imagesKnown := false
	if needImages {
		images, err = s.images.List(ctx, imagePrefix)
		if err != nil {
			s.logger.WithError(err).Error("failed to list event images for cleanup")
		} else {
			imagesKnown = true
		}
	}

	report := &CleanupReport{EventsScanned: len(past)}
	for _, event := range past {
		res := s.removeFiles(ctx, event, images, imagesKnown)
		report.ObjectsRemoved += res.removed
		report.Failures += res.failed

		if err := s.store.ClearEventFiles(ctx, event.ID, res.clearImage, res.clearWaiver); err != nil {
			s.logger.WithError(err).WithField("event_id", event.ID).Error("failed to clear event file references")
		}
	}

	if err := s.store.CleanupExpiredImages(ctx); err != nil {
		s.logger.WithError(err).Error("cleanup_expired_event_images_rpc failed")
	}

	s.logger.WithFields(logrus.Fields{
		"events":   report.EventsScanned,
		"removed":  report.ObjectsRemoved,
		"failures": report.Failures,
	}).Info("past event file cleanup finished")

	return report, nil
}

// removeFiles deletes the stored objects of event. Image handling is skipped
// unless imagesKnown, since a missing listing cannot tell a removed object
// from an unknown one.
func (s *Service) removeFiles(ctx context.Context, event *types.Event, images []storage.Object, imagesKnown bool) fileRemoval {
	var res fileRemoval
	log := s.logger.WithField("event_id", event.ID)

	if id := utils.PtrString(event.ImageID); id != "" && imagesKnown {
		obj, ok := storage.FindByID(images, id)
		if !ok {
			// already gone from the bucket
			res.clearImage = true
		} else if err := s.images.Remove(ctx, obj.Name); err != nil {
			log.WithError(err).WithField("object", obj.Name).Error("failed to remove event image")
			res.failed++
		} else {
			res.clearImage = true
			res.removed++
		}
	}

	if url := utils.PtrString(event.WaiverURL); url != "" {
		if name, ok := storage.ObjectNameFromURL(s.waivers, url); ok {
			if err := s.waivers.Remove(ctx, name); err != nil {
				log.WithError(err).WithField("object", name).Error("failed to remove waiver")
				res.failed++
			} else {
				res.clearWaiver = true
				res.removed++
			}
		}
	}

	return res
}
