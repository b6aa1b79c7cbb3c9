package site

// pageTemplate is the Go html/template for the story page.
const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
  <meta name="generator" content="longform {{.Version}}">
  <link rel="stylesheet" href="/assets/style.css">
</head>
<body data-live="{{if .Live}}true{{else}}false{{end}}" data-embeds="{{if .Embeds}}true{{else}}false{{end}}" data-version="{{.Version}}"{{if .Script}} data-embed-script="{{.Script}}"{{end}}>
  <div class="scroll-progress" id="scroll-progress" aria-hidden="true"><div class="scroll-progress-bar" id="scroll-progress-bar"></div></div>
  <nav class="chapter-nav" id="chapter-nav" aria-label="Chapters">
    <ul>
      {{range .Chapters}}<li><a href="#{{.Anchor}}" data-anchor="{{.Anchor}}">{{.Title}}</a></li>
      {{end}}
    </ul>
  </nav>
  <header class="story-header">
    <h1>{{.Title}}</h1>
  </header>
  <main class="story">
    {{range .Chapters}}<section class="chapter" id="{{.Anchor}}">
      {{.HTML}}
    </section>
    {{end}}
  </main>
  <div class="lightbox" id="lightbox" hidden>
    <button type="button" class="lightbox-close" id="lightbox-close" aria-label="Close">&times;</button>
    <img class="lightbox-image" id="lightbox-image" alt="">
  </div>
  <script src="/assets/story.js"></script>
</body>
</html>
`

// StyleCSS is the shared stylesheet.
const StyleCSS = `:root {
  --text: #1a1a1a;
  --muted: #6b6b6b;
  --accent: #b3542c;
  --bg: #faf8f4;
  --rule: #e3ded4;
}

* { box-sizing: border-box; }

body {
  margin: 0;
  color: var(--text);
  background: var(--bg);
  font-family: Georgia, 'Times New Roman', serif;
  line-height: 1.7;
}

.scroll-progress {
  position: fixed;
  top: 0; left: 0; right: 0;
  height: 3px;
  background: transparent;
  z-index: 40;
}
.scroll-progress-bar {
  height: 100%;
  width: 0;
  background: var(--accent);
  transition: width 80ms linear;
}

.chapter-nav {
  position: fixed;
  top: 50%;
  right: 1.2rem;
  transform: translateY(-50%);
  z-index: 30;
  font-family: system-ui, sans-serif;
  font-size: 0.78rem;
}
.chapter-nav ul { list-style: none; margin: 0; padding: 0; }
.chapter-nav a {
  display: block;
  padding: 0.25rem 0.5rem;
  color: var(--muted);
  text-decoration: none;
  border-right: 2px solid var(--rule);
}
.chapter-nav a.current {
  color: var(--accent);
  border-right-color: var(--accent);
}

.story-header {
  max-width: 42rem;
  margin: 18vh auto 14vh;
  padding: 0 1.5rem;
  text-align: center;
}
.story-header h1 { font-size: 2.6rem; font-weight: normal; }

.story { max-width: 42rem; margin: 0 auto; padding: 0 1.5rem 20vh; }
.chapter { margin-bottom: 10rem; }
.chapter img { max-width: 100%; cursor: zoom-in; }

.story-embed-container { margin: 2.5rem 0; }
.embed-placeholder {
  border: 1px solid var(--rule);
  border-radius: 8px;
  padding: 2rem 1.5rem;
  text-align: center;
  color: var(--muted);
  font-family: system-ui, sans-serif;
  font-size: 0.9rem;
}
.embed-placeholder .embed-load-now {
  display: block;
  margin: 0.8rem auto 0;
  padding: 0.35rem 1rem;
  border: 1px solid var(--rule);
  border-radius: 999px;
  background: none;
  color: var(--accent);
  cursor: pointer;
  font: inherit;
}
.story-embed-container.embed-loaded .embed-placeholder { display: none; }
.embed-error { color: #9a3b3b; }

.lightbox {
  position: fixed;
  inset: 0;
  z-index: 50;
  display: flex;
  align-items: center;
  justify-content: center;
  background: rgba(10, 10, 10, 0.88);
}
.lightbox-image { max-width: 92vw; max-height: 88vh; }
.lightbox-close {
  position: absolute;
  top: 1rem; right: 1.4rem;
  border: none;
  background: none;
  color: #fff;
  font-size: 2rem;
  cursor: pointer;
}
`

// StoryJS carries the page enhancements: scroll progress with chapter
// highlighting, the image lightbox, and the embed client that feeds
// viewport events to the server (or, on static builds, loads the
// provider script eagerly).
const StoryJS = `(function () {
  'use strict';

  var VERSION = document.body.dataset.version || 'dev';

  // --- scroll progress + chapter nav -------------------------------

  var navState = { observer: null };

  function initNav() {
    if (navState.observer) {
      navState.observer.disconnect();
      navState.observer = null;
    }

    var bar = document.getElementById('scroll-progress-bar');
    var onScroll = function () {
      var doc = document.documentElement;
      var max = doc.scrollHeight - window.innerHeight;
      var ratio = max > 0 ? window.scrollY / max : 0;
      if (bar) bar.style.width = (ratio * 100).toFixed(2) + '%';
    };
    window.addEventListener('scroll', onScroll, { passive: true });
    onScroll();

    var links = {};
    document.querySelectorAll('#chapter-nav a[data-anchor]').forEach(function (a) {
      links[a.dataset.anchor] = a;
    });

    if (!('IntersectionObserver' in window)) return;
    navState.observer = new IntersectionObserver(function (entries) {
      entries.forEach(function (entry) {
        var link = links[entry.target.id];
        if (!link) return;
        if (entry.isIntersecting) {
          Object.keys(links).forEach(function (k) { links[k].classList.remove('current'); });
          link.classList.add('current');
        }
      });
    }, { rootMargin: '-40% 0px -50% 0px' });

    document.querySelectorAll('section.chapter').forEach(function (sec) {
      navState.observer.observe(sec);
    });
  }

  // Debug affordance: reinitialize after DOM surgery.
  window.storyNav = { version: VERSION, reinit: initNav };

  // --- lightbox ----------------------------------------------------

  function initLightbox() {
    var box = document.getElementById('lightbox');
    var img = document.getElementById('lightbox-image');
    if (!box || !img) return;

    document.querySelectorAll('.chapter img').forEach(function (el) {
      el.addEventListener('click', function () {
        img.src = el.src;
        img.alt = el.alt || '';
        box.hidden = false;
      });
    });

    var close = function () { box.hidden = true; img.src = ''; };
    box.addEventListener('click', function (e) {
      if (e.target === box || e.target.id === 'lightbox-close') close();
    });
    document.addEventListener('keydown', function (e) {
      if (e.key === 'Escape') close();
    });
  }

  // --- embed client ------------------------------------------------

  function containerFor(node) {
    return document.getElementById(node);
  }

  function attachFragment(node, html) {
    var el = containerFor(node);
    if (!el) return;
    el.classList.add('embed-loaded');
    var frag = document.createElement('div');
    frag.className = 'embed-fragment';
    frag.innerHTML = html;
    var prev = el.querySelector('.embed-fragment');
    if (prev) prev.remove();
    el.appendChild(frag);
  }

  function showError(node, message) {
    var el = containerFor(node);
    if (!el) return;
    var overlay = el.querySelector('.embed-placeholder-overlay');
    if (overlay) {
      overlay.textContent = message;
      overlay.classList.add('embed-error');
    }
    var btn = el.querySelector('.embed-load-now');
    if (btn) btn.textContent = 'Try again';
  }

  var platformScript = null;
  function injectPlatformScript(src, done) {
    if (platformScript) { done && done(); return; }
    // Idempotence guard: reuse a script tag someone else added.
    var existing = document.querySelector('script[src="' + src + '"]');
    if (existing) { platformScript = existing; done && done(); return; }
    platformScript = document.createElement('script');
    platformScript.src = src;
    platformScript.async = true;
    if (done) platformScript.addEventListener('load', done);
    document.body.appendChild(platformScript);
  }

  function runPlatformHook() {
    try {
      if (window.twttr && window.twttr.widgets && window.twttr.widgets.load) {
        window.twttr.widgets.load();
      }
    } catch (err) {
      // Post-processing is best-effort; the embed stays visible.
      console.warn('embed post-process failed', err);
    }
  }

  function placeholderRects() {
    var rects = {};
    document.querySelectorAll('.story-embed-container[id]').forEach(function (el) {
      var r = el.getBoundingClientRect();
      rects[el.id] = { top: r.top, left: r.left, bottom: r.bottom, right: r.right };
    });
    return rects;
  }

  function initLiveEmbeds() {
    var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
    var ws = new WebSocket(proto + location.host + '/ws');
    var cfg = null;
    var observer = null;
    var canObserve = 'IntersectionObserver' in window;

    var send = function (msg) {
      if (ws.readyState === WebSocket.OPEN) ws.send(JSON.stringify(msg));
    };

    ws.addEventListener('open', function () {
      send({ type: 'hello', capabilities: { intersection_observer: canObserve } });
    });

    ws.addEventListener('message', function (ev) {
      var msg = JSON.parse(ev.data);
      switch (msg.type) {
        case 'config':
          cfg = msg.config;
          startObserving();
          reportLoaded();
          break;
        case 'embed':
          attachFragment(msg.node, msg.html);
          break;
        case 'error':
          showError(msg.node, msg.message);
          break;
        case 'process':
          injectPlatformScript(cfg ? cfg.script_path : '/embed/platform.js', runPlatformHook);
          break;
      }
    });

    function startObserving() {
      if (!canObserve || observer) return;
      observer = new IntersectionObserver(function (entries) {
        entries.forEach(function (entry) {
          if (!entry.isIntersecting) return;
          observer.unobserve(entry.target);
          send({ type: 'intersect', node: entry.target.id });
        });
      }, {
        rootMargin: (cfg ? cfg.lookahead_margin_px : 200) + 'px',
        threshold: cfg ? cfg.visible_threshold : 0.01
      });
      document.querySelectorAll('.story-embed-container[id]').forEach(function (el) {
        observer.observe(el);
      });
    }

    function reportLoaded() {
      var report = function () {
        send({
          type: 'loaded',
          rects: placeholderRects(),
          viewport: { width: window.innerWidth, height: window.innerHeight }
        });
      };
      if (document.readyState === 'complete') report();
      else window.addEventListener('load', report);
    }

    document.querySelectorAll('.embed-load-now').forEach(function (btn) {
      btn.addEventListener('click', function () {
        send({ type: 'manual', node: btn.dataset.node });
      });
    });
  }

  // Static builds have no coordinating server: load the provider
  // script eagerly and let it upgrade the placeholders in place.
  function initStaticEmbeds() {
    var src = document.body.dataset.embedScript;
    if (!src) return;
    document.querySelectorAll('.story-embed-container[id]').forEach(function (el) {
      var permalink = el.dataset.permalink;
      if (!permalink) return;
      attachFragment(el.id,
        '<blockquote class="story-embed" data-permalink="' + permalink + '">' +
        '<a href="' + permalink + '" rel="noopener noreferrer">' + permalink + '</a></blockquote>');
    });
    injectPlatformScript(src, runPlatformHook);
  }

  initNav();
  initLightbox();

  if (document.body.dataset.embeds === 'true') {
    if (document.body.dataset.live === 'true') initLiveEmbeds();
    else initStaticEmbeds();
  }
})();
`
