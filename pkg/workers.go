package wavedump

import (
	"fmt"
	"sync"
)

type WorkerData struct {
	Config   ChannelConfig
	Waveform []uint16
}

type WorkerResult struct {
	ChannelID int
	Result    ProcessedChannelResult
	Err       error
}

func worker(id int, jobs <-chan WorkerData, results chan<- WorkerResult, wg *sync.WaitGroup) {
	defer wg.Done()
	for job := range jobs {
		results <- processChannel(id, job)
	}
}

func processChannel(id int, job WorkerData) (res WorkerResult) {
	res.ChannelID = job.Config.ChannelID()
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("worker %d recovered from panic on channel %d: %v", id, res.ChannelID, r)
		}
	}()
	if verbosity > 2 {
		message := fmt.Sprintf("Worker %d processing channel %d", id, res.ChannelID)
		logger.Info(message, "workers")
	}
	res.Result, res.Err = ExtractFeatures(job.Waveform, job.Config)
	return res
}

// extractChannels runs the feature extraction of every job, using up to
// numWorkers goroutines. The results are keyed by channel id.
func extractChannels(jobs []WorkerData, numWorkers int) map[int]WorkerResult {
	results := make(map[int]WorkerResult, len(jobs))
	if numWorkers <= 1 || len(jobs) <= 1 {
		for _, job := range jobs {
			res := processChannel(0, job)
			results[res.ChannelID] = res
		}
		return results
	}

	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}
	jobsChan := make(chan WorkerData, len(jobs))
	resultsChan := make(chan WorkerResult, len(jobs))
	var wg sync.WaitGroup
	for w := 1; w <= numWorkers; w++ {
		wg.Add(1)
		go worker(w, jobsChan, resultsChan, &wg)
	}
	for _, job := range jobs {
		jobsChan <- job
	}
	close(jobsChan)
	wg.Wait()
	close(resultsChan)

	for res := range resultsChan {
		results[res.ChannelID] = res
	}
	return results
}
