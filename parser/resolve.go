package parser

// ResolvePath opens the file with the given reference number relative
// to the volume and returns its root relative path (e.g.
// \Users\Public). The transient handle is always released. Every call
// goes to the driver so a renamed or deleted file is never reported
// under a stale name.
func (self *Journal) ResolvePath(frn uint64) (string, error) {
	device, err := self.checkReference(frn)
	if err != nil {
		return "", err
	}

	return self.resolve(device, frn)
}

// FullPath resolves the parent folder of record and appends the record
// name. Records of the root folder itself have no resolvable parent.
func (self *Journal) FullPath(record *ChangeRecord) (string, error) {
	parent, err := self.resolveParent(record.ParentFileReferenceNumber)
	if err != nil {
		return "", err
	}
	return JoinPath(parent, record.Name), nil
}

// Parent folders are shared by many records so their paths go through
// the cache. Observed folder renames and deletes purge it.
func (self *Journal) resolveParent(frn uint64) (string, error) {
	device, err := self.checkReference(frn)
	if err != nil {
		return "", err
	}

	if path, pres := self.paths.Get(frn); pres {
		STATS.Inc_PathCacheHits()
		PathResolutionsTotal.WithLabelValues("cached").Inc()
		return path, nil
	}

	path, err := self.resolve(device, frn)
	if err != nil {
		return "", err
	}

	self.paths.Set(frn, path)
	return path, nil
}

func (self *Journal) checkReference(frn uint64) (Device, error) {
	if frn == 0 {
		PathResolutionsTotal.WithLabelValues(Fail).Inc()
		return nil, newError(KindInvalidFileReferenceNumber, "resolve",
			"file reference number is 0")
	}

	return self.getDevice()
}

func (self *Journal) resolve(device Device, frn uint64) (string, error) {
	STATS.Inc_PathResolutions()

	path, err := resolvePath(device, frn)
	if err != nil {
		PathResolutionsTotal.WithLabelValues(Fail).Inc()
		DebugPrint("ResolvePath %#x: %v\n", frn, err)
		return "", err
	}

	PathResolutionsTotal.WithLabelValues(Ok).Inc()
	return path, nil
}

func resolvePath(device Device, frn uint64) (string, error) {
	file, err := device.OpenFileReference(frn)
	if err != nil {
		return "", translateError("resolve", err)
	}
	defer file.Close()

	name, err := file.Name()
	if err != nil {
		return "", translateError("resolve", err)
	}
	return name, nil
}
